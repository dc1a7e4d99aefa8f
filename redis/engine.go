// Package redis provides a Redis-backed api.Engine.
package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/arcflow/arcflow/pkg/api"
)

// Engine is an api.Engine backed by Redis. It uses a simple key structure:
//
//	<prefix>ctr:<process_id>:node   => INCR counter for node-token ids
//	<prefix>ctr:<process_id>:arc    => INCR counter for arc-token ids
//	<prefix>attrs:<process_id>:<node_token_id>  => HASH of key -> gob(value)
//
// Node-token and arc-token lifecycle is tracked entirely by api.Process
// (the in-memory live lists the interpreter already maintains); Redis here
// only needs to durably hand out unique ids and keep attribute state, the
// only state a restart could not simply recompute from the live lists.
type Engine struct {
	client *goredis.Client
	prefix string
}

var _ api.Engine = (*Engine)(nil)

// NewEngine creates an Engine using the given prefix, defaulting to
// "arcflow:" when empty.
func NewEngine(client *goredis.Client, prefix string) *Engine {
	if prefix == "" {
		prefix = "arcflow:"
	}
	return &Engine{client: client, prefix: prefix}
}

func (e *Engine) keyCounter(processID, kind string) string {
	return e.prefix + "ctr:" + processID + ":" + kind
}

func (e *Engine) keyAttrs(processID string, nodeTokenID int) string {
	return fmt.Sprintf("%sattrs:%s:%d", e.prefix, processID, nodeTokenID)
}

func (e *Engine) CreateProcess(ctx context.Context, graph api.Graph, registry api.Registry, userData any) (*api.Process, error) {
	return &api.Process{
		ID:       uuid.NewString(),
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}, nil
}

func (e *Engine) allocID(ctx context.Context, processID, kind string) (int, error) {
	n, err := e.client.Incr(ctx, e.keyCounter(processID, kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("arcflow/redis: allocate id: %w", err)
	}
	return int(n), nil
}

func (e *Engine) CreateNodeToken(ctx context.Context, process *api.Process, node api.Node, incoming []api.ArcToken) (*api.Process, api.NodeToken, error) {
	id, err := e.allocID(ctx, process.ID, "node")
	if err != nil {
		return nil, api.NodeToken{}, err
	}
	token := api.NodeToken{ID: id, NodeID: node.ID}

	if len(incoming) > 0 {
		var merged []api.TokenAttr
		for _, in := range incoming {
			merged = append(merged, process.Attrs[in.ParentNodeTokenID]...)
		}
		for _, a := range merged {
			if err := e.writeAttr(ctx, process.ID, token.ID, a.Key, a.Value); err != nil {
				return nil, api.NodeToken{}, err
			}
		}
		if len(merged) > 0 {
			process.ReplaceTokenAttrs(token.ID, merged)
		}
	}

	return process, token, nil
}

func (e *Engine) CreateArcToken(ctx context.Context, process *api.Process, arc api.Arc, parent api.NodeToken) (*api.Process, api.ArcToken, error) {
	id, err := e.allocID(ctx, process.ID, "arc")
	if err != nil {
		return nil, api.ArcToken{}, err
	}
	return process, api.ArcToken{ID: id, ArcID: arc.ID, ParentNodeTokenID: parent.ID}, nil
}

func (e *Engine) CompleteNodeToken(ctx context.Context, process *api.Process, token api.NodeToken) error {
	if err := e.client.Del(ctx, e.keyAttrs(process.ID, token.ID)).Err(); err != nil {
		return fmt.Errorf("arcflow/redis: delete token attrs: %w", err)
	}
	delete(process.Attrs, token.ID)
	return nil
}

func (e *Engine) CompleteArcToken(ctx context.Context, process *api.Process, token api.ArcToken) error {
	return nil
}

// TransactionBoundary is a no-op: every write above already commits as its
// own command.
func (e *Engine) TransactionBoundary(ctx context.Context, process *api.Process) error {
	return nil
}

func (e *Engine) writeAttr(ctx context.Context, processID string, nodeTokenID int, key string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	if err := e.client.HSet(ctx, e.keyAttrs(processID, nodeTokenID), key, encoded).Err(); err != nil {
		return fmt.Errorf("arcflow/redis: hset token attr: %w", err)
	}
	return nil
}

func (e *Engine) SetTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string, value any) (*api.Process, error) {
	if err := e.writeAttr(ctx, process.ID, token.ID, key, value); err != nil {
		return nil, err
	}
	process.SetAttr(token.ID, key, value)
	return process, nil
}

func (e *Engine) RemoveTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string) (*api.Process, error) {
	if err := e.client.HDel(ctx, e.keyAttrs(process.ID, token.ID), key).Err(); err != nil {
		return nil, fmt.Errorf("arcflow/redis: hdel token attr: %w", err)
	}
	process.RemoveAttr(token.ID, key)
	return process, nil
}

func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("arcflow/redis: encode value: %w", err)
	}
	return buf.Bytes(), nil
}
