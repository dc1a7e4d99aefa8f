package backend

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/api"
)

// Memory is a goroutine-safe, in-process api.Engine. It keeps no history
// beyond what api.Process already carries and is meant for tests and
// simple, single-process deployments (spec.md §4.3 "backends have no
// bearing on interpretation").
type Memory struct {
	mu          sync.Mutex
	nextNodeTok int
	nextArcTok  int
}

// NewMemory builds an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

var _ api.Engine = (*Memory)(nil)

func (m *Memory) CreateProcess(ctx context.Context, graph api.Graph, registry api.Registry, userData any) (*api.Process, error) {
	return &api.Process{
		ID:       uuid.NewString(),
		Graph:    graph,
		Registry: registry,
		Attrs:    make(map[int][]api.TokenAttr),
		UserData: userData,
	}, nil
}

func (m *Memory) CreateNodeToken(ctx context.Context, process *api.Process, node api.Node, incoming []api.ArcToken) (*api.Process, api.NodeToken, error) {
	m.mu.Lock()
	m.nextNodeTok++
	id := m.nextNodeTok
	m.mu.Unlock()

	token := api.NodeToken{ID: id, NodeID: node.ID}

	if len(incoming) > 0 {
		merged := make([]api.TokenAttr, 0)
		for _, in := range incoming {
			for _, a := range process.Attrs[in.ParentNodeTokenID] {
				merged = append(merged, a)
			}
		}
		if len(merged) > 0 {
			process.ReplaceTokenAttrs(token.ID, merged)
		}
	}

	return process, token, nil
}

func (m *Memory) CreateArcToken(ctx context.Context, process *api.Process, arc api.Arc, parent api.NodeToken) (*api.Process, api.ArcToken, error) {
	m.mu.Lock()
	m.nextArcTok++
	id := m.nextArcTok
	m.mu.Unlock()

	return process, api.ArcToken{ID: id, ArcID: arc.ID, ParentNodeTokenID: parent.ID}, nil
}

func (m *Memory) CompleteNodeToken(ctx context.Context, process *api.Process, token api.NodeToken) error {
	delete(process.Attrs, token.ID)
	return nil
}

func (m *Memory) CompleteArcToken(ctx context.Context, process *api.Process, token api.ArcToken) error {
	return nil
}

func (m *Memory) TransactionBoundary(ctx context.Context, process *api.Process) error {
	return nil
}

func (m *Memory) SetTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string, value any) (*api.Process, error) {
	process.SetAttr(token.ID, key, value)
	return process, nil
}

func (m *Memory) RemoveTokenAttr(ctx context.Context, process *api.Process, token api.NodeToken, key string) (*api.Process, error) {
	process.RemoveAttr(token.ID, key)
	return process, nil
}
