package arcflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow"
)

func TestGraphBuilder_BuildsLinearGraph(t *testing.T) {
	g, err := arcflow.NewGraph(1, "approval").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "review", arcflow.TypeTask).
		Node(3, "done", arcflow.TypeDefault).
		Arc(1, "", 1, 2).
		Arc(2, "", 2, 3).
		Build()
	require.NoError(t, err)

	start, err := g.StartNode()
	require.NoError(t, err)
	assert.Equal(t, 1, start.ID)
	assert.Len(t, g.OutputArcs(1), 1)
}

func TestGraphBuilder_Join(t *testing.T) {
	g := arcflow.NewGraph(1, "split").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "merge", arcflow.TypeDefault).Join().
		MustBuild()

	n, ok := g.Node(2)
	require.True(t, ok)
	assert.True(t, n.IsJoin)
}

func TestGraphBuilder_Extra(t *testing.T) {
	g := arcflow.NewGraph(1, "extra").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "configured", arcflow.TypeDefault).Extra("payload").
		MustBuild()

	n, ok := g.Node(2)
	require.True(t, ok)
	assert.Equal(t, "payload", n.Extra)
}

func TestGraphBuilder_JoinWithNoNodes_ProducesBuildError(t *testing.T) {
	_, err := arcflow.NewGraph(1, "empty").Join().Build()
	assert.Error(t, err)
}

func TestGraphBuilder_MustBuild_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		arcflow.NewGraph(1, "bad").Join().MustBuild()
	})
}
