// Package backend contains Engine implementations: an in-memory backend for
// tests and simple deployments, and a modernc.org/sqlite-backed backend for
// durable single-node persistence.
package backend

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Composite types that gob does not register by default must be registered
// before they can travel boxed in an interface.
func init() {
	gob.Register(map[string]any{})
	gob.Register(map[int]any{})
	gob.Register([]any{})
}

// encodeValue serializes an arbitrary Go value (a TokenAttr value or a
// Process's UserData) with encoding/gob, boxed as an interface so it can
// later be decoded back into any.
func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	iv := v
	if err := enc.Encode(&iv); err != nil {
		return nil, fmt.Errorf("arcflow: encode value: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeValue mirrors the codec's teacher: it tries interface-boxed decoding
// first (the format encodeValue produces), then falls back to a handful of
// common concrete types so payloads written by other encoders still load.
func decodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	if v, ok, err := tryDecodeAsAny(data); ok {
		return v, nil
	} else if err != nil && !mustRetryAsConcrete(err) {
		return nil, err
	}

	if v, ok, err := tryDecodeCommonConcrete(data); ok {
		return v, nil
	} else if err != nil {
		return nil, err
	}

	return nil, errors.New("arcflow: unable to decode gob value")
}

func tryDecodeAsAny(data []byte) (any, bool, error) {
	var iv any
	dec := gob.NewDecoder(bytes.NewBuffer(data))
	if err := dec.Decode(&iv); err != nil {
		return nil, false, err
	}
	return iv, true, nil
}

func tryDecodeCommonConcrete(data []byte) (any, bool, error) {
	candidates := []any{
		new(string), new([]byte), new(int), new(int64), new(float64), new(bool),
		new(map[string]any), new(map[int]any), new([]any), new([]string), new([]int),
	}
	for _, c := range candidates {
		dec := gob.NewDecoder(bytes.NewBuffer(data))
		if err := dec.Decode(c); err == nil {
			return reflect.ValueOf(c).Elem().Interface(), true, nil
		}
	}
	return nil, false, nil
}

func mustRetryAsConcrete(err error) bool {
	s := err.Error()
	return strings.Contains(s, "can only be decoded from remote interface") &&
		strings.Contains(s, "received concrete type")
}
