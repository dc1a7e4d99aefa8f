package resumer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/internal/backend"
	"github.com/arcflow/arcflow/internal/resumequeue"
	"github.com/arcflow/arcflow/pkg/api"
	"github.com/arcflow/arcflow/pkg/interp"
	"github.com/arcflow/arcflow/pkg/nodetypes"
	"github.com/arcflow/arcflow/pkg/resumer"
)

type mapLoader struct {
	procs map[string]*api.Process
}

func (l *mapLoader) LoadProcess(ctx context.Context, processID string) (*api.Process, error) {
	p, ok := l.procs[processID]
	if !ok {
		return nil, api.ErrNodeTokenNotFound
	}
	return p, nil
}

// gateRegistry builds a registry whose "gate" node type records, via seen,
// whatever "approved" attribute value its node-token carried at accept time,
// then parks without completing — so the resumed token and its attributes
// stay inspectable by the test.
func gateRegistry(seen *any) api.MapRegistry {
	return nodetypes.BuildRegistry(map[string]api.NodeType{
		"gate": {
			Guard: api.DefaultGuard,
			Accept: func(ctx context.Context, i api.Interpreter, token api.NodeToken, process *api.Process) error {
				*seen, _ = process.AttrValue(token, "approved")
				return nil
			},
		},
	})
}

func TestResumer_ProcessOne_AppliesAttrsAndResumes(t *testing.T) {
	ctx := context.Background()
	eng := backend.NewMemory()
	it := interp.New(eng, nil)
	var seen any
	registry := gateRegistry(&seen)

	g, err := api.BuildGraph(1, "gate-graph", []api.Node{
		{ID: 2, TypeName: "gate"},
	}, nil)
	require.NoError(t, err)

	process, err := eng.CreateProcess(ctx, g, registry, nil)
	require.NoError(t, err)
	process, tok, err := eng.CreateNodeToken(ctx, process, api.Node{ID: 2}, nil)
	require.NoError(t, err)
	process.PrependNodeToken(tok)

	loader := &mapLoader{procs: map[string]*api.Process{process.ID: process}}
	queue := resumequeue.NewInMemoryQueue(4)
	r := resumer.New(it, queue, loader)

	require.NoError(t, r.Enqueue(ctx, process.ID, tok, map[string]any{"approved": true}))

	processed, err := r.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, true, seen)
}

func TestResumer_ProcessOne_UnknownProcess(t *testing.T) {
	ctx := context.Background()
	eng := backend.NewMemory()
	it := interp.New(eng, nil)
	loader := &mapLoader{procs: map[string]*api.Process{}}
	queue := resumequeue.NewInMemoryQueue(4)
	r := resumer.New(it, queue, loader)

	require.NoError(t, r.Enqueue(ctx, "missing", api.NodeToken{ID: 1, NodeID: 2}, nil))

	_, err := r.ProcessOne(ctx)
	assert.Error(t, err)
}

func TestResumer_ProcessOne_UnknownNodeToken(t *testing.T) {
	ctx := context.Background()
	eng := backend.NewMemory()
	it := interp.New(eng, nil)

	var seen any
	process, err := eng.CreateProcess(ctx, api.Graph{}, gateRegistry(&seen), nil)
	require.NoError(t, err)

	loader := &mapLoader{procs: map[string]*api.Process{process.ID: process}}
	queue := resumequeue.NewInMemoryQueue(4)
	r := resumer.New(it, queue, loader)

	require.NoError(t, r.Enqueue(ctx, process.ID, api.NodeToken{ID: 999, NodeID: 2}, nil))

	_, err = r.ProcessOne(ctx)
	assert.ErrorIs(t, err, api.ErrNodeTokenNotFound)
}
