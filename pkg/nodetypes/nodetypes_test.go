package nodetypes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/pkg/api"
	"github.com/arcflow/arcflow/pkg/nodetypes"
)

func TestBuildRegistry_IncludesBuiltins(t *testing.T) {
	reg := nodetypes.BuildRegistry(nil)

	for _, name := range []string{
		nodetypes.TypeStart, nodetypes.TypeDefault, nodetypes.TypeTask, nodetypes.TypeAutoDiscard,
	} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, "missing builtin %q", name)
	}
}

func TestBuildRegistry_ExtraOverridesBuiltin(t *testing.T) {
	custom := api.NodeType{Guard: api.DefaultGuard}
	reg := nodetypes.BuildRegistry(map[string]api.NodeType{
		nodetypes.TypeDefault: custom,
	})

	got, ok := reg.Lookup(nodetypes.TypeDefault)
	require.True(t, ok)
	assert.Nil(t, got.Accept, "extra entry should fully replace the builtin, not merge fields")
}

func TestAutoDiscard_GuardAlwaysDiscards(t *testing.T) {
	decision, err := nodetypes.AutoDiscard.Guard(context.Background(), api.NodeToken{}, &api.Process{})
	require.NoError(t, err)
	assert.Equal(t, api.DecisionDiscard, decision.Kind)
	assert.Nil(t, nodetypes.AutoDiscard.Accept)
}

func TestTask_AcceptParksWithoutCompleting(t *testing.T) {
	process := &api.Process{Attrs: map[int][]api.TokenAttr{}}
	err := nodetypes.Task.Accept(context.Background(), noopInterpreter{}, api.NodeToken{ID: 1}, process)
	require.NoError(t, err)
}

func TestDefault_AcceptCallsCompleteDefaultExecution(t *testing.T) {
	spy := &spyInterpreter{}
	process := &api.Process{}
	err := nodetypes.Default.Accept(context.Background(), spy, api.NodeToken{ID: 7}, process)
	require.NoError(t, err)
	assert.True(t, spy.called)
	assert.Equal(t, 7, spy.gotToken.ID)
}

type noopInterpreter struct{}

func (noopInterpreter) Engine() api.Engine { return nil }
func (noopInterpreter) CompleteExecution(ctx context.Context, token api.NodeToken, outputArcLabel string, process *api.Process) (*api.Process, error) {
	return process, nil
}
func (noopInterpreter) CompleteDefaultExecution(ctx context.Context, token api.NodeToken, process *api.Process) (*api.Process, error) {
	return process, nil
}

type spyInterpreter struct {
	called   bool
	gotToken api.NodeToken
}

func (s *spyInterpreter) Engine() api.Engine { return nil }
func (s *spyInterpreter) CompleteExecution(ctx context.Context, token api.NodeToken, outputArcLabel string, process *api.Process) (*api.Process, error) {
	return process, nil
}
func (s *spyInterpreter) CompleteDefaultExecution(ctx context.Context, token api.NodeToken, process *api.Process) (*api.Process, error) {
	s.called = true
	s.gotToken = token
	return process, nil
}
