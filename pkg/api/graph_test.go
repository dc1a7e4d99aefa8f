package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/pkg/api"
)

func TestBuildGraph_IndexesArcs(t *testing.T) {
	nodes := []api.Node{
		{ID: 1, TypeName: "start"},
		{ID: 2, TypeName: "default"},
		{ID: 3, TypeName: "default"},
	}
	arcs := []api.Arc{
		{ID: 10, Label: "a", StartNodeID: 1, EndNodeID: 2},
		{ID: 11, Label: "b", StartNodeID: 1, EndNodeID: 3},
	}

	g, err := api.BuildGraph(1, "g", nodes, arcs)
	require.NoError(t, err)

	assert.Len(t, g.OutputArcs(1), 2)
	assert.Len(t, g.OutputArcs(2), 0)
	assert.Len(t, g.InputArcs(2), 1)
	assert.Equal(t, 10, g.InputArcs(2)[0].ID)

	arc, ok := g.Arc(11)
	require.True(t, ok)
	assert.Equal(t, "b", arc.Label)

	_, ok = g.Arc(999)
	assert.False(t, ok)
}

func TestBuildGraph_DuplicateNodeID(t *testing.T) {
	nodes := []api.Node{{ID: 1}, {ID: 1}}
	_, err := api.BuildGraph(1, "g", nodes, nil)
	assert.ErrorIs(t, err, api.ErrDuplicateNodeID)
}

func TestBuildGraph_UnknownArcEndpoint(t *testing.T) {
	nodes := []api.Node{{ID: 1}}
	arcs := []api.Arc{{ID: 1, StartNodeID: 1, EndNodeID: 2}}
	_, err := api.BuildGraph(1, "g", nodes, arcs)
	assert.ErrorIs(t, err, api.ErrUnknownArcEndpoint)
}

func TestGraph_StartNode(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		g, err := api.BuildGraph(1, "g", []api.Node{{ID: 1, TypeName: "default"}}, nil)
		require.NoError(t, err)
		_, err = g.StartNode()
		assert.ErrorIs(t, err, api.ErrNoStartNode)
	})

	t.Run("exactly one", func(t *testing.T) {
		nodes := []api.Node{
			{ID: 1, TypeName: "start", Source: api.NodeSource{Depth: 0}},
			{ID: 2, TypeName: "default"},
		}
		g, err := api.BuildGraph(1, "g", nodes, nil)
		require.NoError(t, err)
		n, err := g.StartNode()
		require.NoError(t, err)
		assert.Equal(t, 1, n.ID)
	})

	t.Run("start at nonzero depth does not count", func(t *testing.T) {
		nodes := []api.Node{
			{ID: 1, TypeName: "start", Source: api.NodeSource{Depth: 1}},
		}
		g, err := api.BuildGraph(1, "g", nodes, nil)
		require.NoError(t, err)
		_, err = g.StartNode()
		assert.ErrorIs(t, err, api.ErrNoStartNode)
	})

	t.Run("multiple", func(t *testing.T) {
		nodes := []api.Node{
			{ID: 1, TypeName: "start"},
			{ID: 2, TypeName: "start"},
		}
		g, err := api.BuildGraph(1, "g", nodes, nil)
		require.NoError(t, err)
		_, err = g.StartNode()
		assert.ErrorIs(t, err, api.ErrMultipleStartNodes)
	})
}

func TestNode_IsStart(t *testing.T) {
	assert.True(t, api.Node{TypeName: "start", Source: api.NodeSource{Depth: 0}}.IsStart())
	assert.False(t, api.Node{TypeName: "start", Source: api.NodeSource{Depth: 1}}.IsStart())
	assert.False(t, api.Node{TypeName: "default", Source: api.NodeSource{Depth: 0}}.IsStart())
}

func TestErrors_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(api.ErrNoStartNode, api.ErrMultipleStartNodes))
}
