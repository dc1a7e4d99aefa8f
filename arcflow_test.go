package arcflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow"
)

func TestStart_DrivesLinearGraphToCompletion(t *testing.T) {
	g := arcflow.NewGraph(1, "linear").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "middle", arcflow.TypeDefault).
		Node(3, "end", arcflow.TypeDefault).
		Arc(1, "", 1, 2).
		Arc(2, "", 2, 3).
		MustBuild()

	eng := arcflow.NewMemoryEngine()
	it := arcflow.NewInterpreter(eng, nil)

	process, err := arcflow.Start(context.Background(), it, arcflow.BuildRegistry(nil), g, nil)
	require.NoError(t, err)
	assert.True(t, process.IsComplete())
}

func TestStart_ParksAtTaskNode(t *testing.T) {
	g := arcflow.NewGraph(1, "one-task").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "review", arcflow.TypeTask).
		Arc(1, "", 1, 2).
		MustBuild()

	eng := arcflow.NewMemoryEngine()
	it := arcflow.NewInterpreter(eng, nil)

	process, err := arcflow.Start(context.Background(), it, arcflow.BuildRegistry(nil), g, nil)
	require.NoError(t, err)
	require.False(t, process.IsComplete())
	require.Len(t, process.NodeTokens, 1)
	assert.Equal(t, 2, process.NodeTokens[0].NodeID)
}

func TestResume_CompletesAParkedTask(t *testing.T) {
	g := arcflow.NewGraph(1, "resume-me").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "review", "approve-gate").
		Node(3, "end", arcflow.TypeDefault).
		Arc(1, "", 1, 2).
		Arc(2, "", 2, 3).
		MustBuild()

	eng := arcflow.NewMemoryEngine()
	it := arcflow.NewInterpreter(eng, nil)

	process, err := arcflow.Start(context.Background(), it, arcflow.BuildRegistry(approveGate()), g, nil)
	require.NoError(t, err)
	tok := process.NodeTokens[0]

	// A plain TypeTask node parks again when re-entered; approve-gate
	// completes once the attribute its accept action reads has been set.
	process, err = eng.SetTokenAttr(context.Background(), process, tok, "approved", true)
	require.NoError(t, err)

	process, err = arcflow.Resume(context.Background(), it, tok, process)
	require.NoError(t, err)
	assert.True(t, process.IsComplete())
}

func TestBuildRegistry_ExtraMergesWithBuiltins(t *testing.T) {
	custom := arcflow.NodeType{Guard: arcflow.DefaultGuard}
	reg := arcflow.BuildRegistry(map[string]arcflow.NodeType{"custom": custom})

	_, ok := reg.Lookup(arcflow.TypeStart)
	assert.True(t, ok)
	_, ok = reg.Lookup("custom")
	assert.True(t, ok)
}
