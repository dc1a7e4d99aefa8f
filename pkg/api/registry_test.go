package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/pkg/api"
)

func TestMapRegistry_Lookup(t *testing.T) {
	nt := api.NodeType{Guard: api.DefaultGuard}
	reg := api.NewMapRegistry(map[string]api.NodeType{"default": nt})

	got, ok := reg.Lookup("default")
	require.True(t, ok)
	assert.NotNil(t, got.Guard)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestNewMapRegistry_CopiesInput(t *testing.T) {
	src := map[string]api.NodeType{"a": {}}
	reg := api.NewMapRegistry(src)
	src["b"] = api.NodeType{}

	_, ok := reg.Lookup("b")
	assert.False(t, ok, "NewMapRegistry must not alias the input map")
}

func TestDefaultGuard_AlwaysAccepts(t *testing.T) {
	decision, err := api.DefaultGuard(context.Background(), api.NodeToken{}, &api.Process{})
	require.NoError(t, err)
	assert.Equal(t, api.DecisionAccept, decision.Kind)
}

func TestGuardDecisionConstructors(t *testing.T) {
	assert.Equal(t, api.DecisionAccept, api.Accept().Kind)
	assert.Equal(t, api.DecisionDiscard, api.Discard().Kind)

	skip := api.Skip("approved")
	assert.Equal(t, api.DecisionSkip, skip.Kind)
	assert.Equal(t, "approved", skip.ArcLabel)
}
