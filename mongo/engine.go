// Package mongo provides a MongoDB-backed api.Engine.
package mongo

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arcflow/arcflow/pkg/api"
)

// Engine is an api.Engine backed by MongoDB. Each Process is one document
// in the processes collection, carrying its user payload, its token-id
// counters and its attribute map keyed by node-token id. Live node-token and
// arc-token lists are not stored; they live only in api.Process. Every
// mutation is a single update against that one document.
type Engine struct {
	processes *mongo.Collection
}

var _ api.Engine = (*Engine)(nil)

// NewEngine returns an Engine using dbName/collName, defaulting to
// "arcflow"/"processes" when either is empty.
func NewEngine(client *mongo.Client, dbName, collName string) *Engine {
	if dbName == "" {
		dbName = "arcflow"
	}
	if collName == "" {
		collName = "processes"
	}
	return &Engine{processes: client.Database(dbName).Collection(collName)}
}

type processDoc struct {
	ID            string              `bson:"_id"`
	UserData      []byte              `bson:"user_data,omitempty"`
	NextNodeToken int                 `bson:"next_node_token"`
	NextArcToken  int                 `bson:"next_arc_token"`
	Attrs         map[string][]attrDoc `bson:"attrs"`
}

type attrDoc struct {
	Key   string `bson:"key"`
	Value []byte `bson:"value"`
}

func (e *Engine) CreateProcess(ctx context.Context, graph api.Graph, registry api.Registry, userData any) (*api.Process, error) {
	encoded, err := encodeValue(userData)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	doc := processDoc{
		ID:            id,
		UserData:      encoded,
		NextNodeToken: 1,
		NextArcToken:  1,
		Attrs:         make(map[string][]attrDoc),
	}
	if _, err := e.processes.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("arcflow/mongo: insert process: %w", err)
	}
	return &api.Process{
		ID:       id,
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}, nil
}

func (e *Engine) allocID(ctx context.Context, processID, field string) (int, error) {
	res := e.processes.FindOneAndUpdate(ctx,
		bson.M{"_id": processID},
		bson.M{"$inc": bson.M{field: 1}},
		options.FindOneAndUpdate().SetProjection(bson.M{field: 1}),
	)
	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("arcflow/mongo: allocate id: %w", err)
	}
	v, _ := doc[field].(int32)
	return int(v), nil
}

func (e *Engine) CreateNodeToken(ctx context.Context, process *api.Process, node api.Node, incoming []api.ArcToken) (*api.Process, api.NodeToken, error) {
	id, err := e.allocID(ctx, process.ID, "next_node_token")
	if err != nil {
		return nil, api.NodeToken{}, err
	}
	token := api.NodeToken{ID: id, NodeID: node.ID}

	if len(incoming) > 0 {
		var merged []api.TokenAttr
		for _, in := range incoming {
			merged = append(merged, process.Attrs[in.ParentNodeTokenID]...)
		}
		if len(merged) > 0 {
			if err := e.writeAttrs(ctx, process.ID, token.ID, merged); err != nil {
				return nil, api.NodeToken{}, err
			}
			process.ReplaceTokenAttrs(token.ID, merged)
		}
	}

	return process, token, nil
}

func (e *Engine) CreateArcToken(ctx context.Context, process *api.Process, arc api.Arc, parent api.NodeToken) (*api.Process, api.ArcToken, error) {
	id, err := e.allocID(ctx, process.ID, "next_arc_token")
	if err != nil {
		return nil, api.ArcToken{}, err
	}
	return process, api.ArcToken{ID: id, ArcID: arc.ID, ParentNodeTokenID: parent.ID}, nil
}

func (e *Engine) CompleteNodeToken(ctx context.Context, process *api.Process, token api.NodeToken) error {
	key := attrKey(token.ID)
	_, err := e.processes.UpdateOne(ctx,
		bson.M{"_id": process.ID},
		bson.M{"$unset": bson.M{"attrs." + key: ""}},
	)
	if err != nil {
		return fmt.Errorf("arcflow/mongo: clear node token attrs: %w", err)
	}
	delete(process.Attrs, token.ID)
	return nil
}

func (e *Engine) CompleteArcToken(ctx context.Context, process *api.Process, token api.ArcToken) error {
	return nil
}

// TransactionBoundary is a no-op: every write above already commits as its
// own operation.
func (e *Engine) TransactionBoundary(ctx context.Context, process *api.Process) error {
	return nil
}

func attrKey(nodeTokenID int) string {
	return fmt.Sprintf("%d", nodeTokenID)
}

func (e *Engine) writeAttrs(ctx context.Context, processID string, nodeTokenID int, attrs []api.TokenAttr) error {
	docs := make([]attrDoc, 0, len(attrs))
	for _, a := range attrs {
		encoded, err := encodeValue(a.Value)
		if err != nil {
			return err
		}
		docs = append(docs, attrDoc{Key: a.Key, Value: encoded})
	}
	_, err := e.processes.UpdateOne(ctx,
		bson.M{"_id": processID},
		bson.M{"$set": bson.M{"attrs." + attrKey(nodeTokenID): docs}},
	)
	if err != nil {
		return fmt.Errorf("arcflow/mongo: write token attrs: %w", err)
	}
	return nil
}

func (e *Engine) SetTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string, value any) (*api.Process, error) {
	process.SetAttr(token.ID, key, value)
	if err := e.writeAttrs(ctx, process.ID, token.ID, process.Attrs[token.ID]); err != nil {
		return nil, err
	}
	return process, nil
}

func (e *Engine) RemoveTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string) (*api.Process, error) {
	process.RemoveAttr(token.ID, key)
	if err := e.writeAttrs(ctx, process.ID, token.ID, process.Attrs[token.ID]); err != nil {
		return nil, err
	}
	return process, nil
}

func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("arcflow/mongo: encode value: %w", err)
	}
	return buf.Bytes(), nil
}
