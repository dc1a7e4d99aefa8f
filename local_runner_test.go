package arcflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow"
	"github.com/arcflow/arcflow/pkg/api"
)

// approveGate parks like arcflow.TypeTask until resumed, then completes
// through the default arc rather than re-parking, so a Resumer can actually
// drive it to completion.
func approveGate() map[string]arcflow.NodeType {
	return map[string]arcflow.NodeType{
		"approve-gate": {
			Guard: arcflow.DefaultGuard,
			Accept: func(ctx context.Context, it api.Interpreter, token arcflow.NodeToken, process *arcflow.Process) error {
				approved, _ := process.AttrValue(token, "approved")
				if approved != true {
					return nil
				}
				_, err := it.CompleteDefaultExecution(ctx, token, process)
				return err
			},
		},
	}
}

func TestLocalRunner_ResumeAsyncCompletesParkedTask(t *testing.T) {
	g := arcflow.NewGraph(1, "async-resume").
		Node(1, "start", arcflow.TypeStart).
		Node(2, "review", "approve-gate").
		Node(3, "end", arcflow.TypeDefault).
		Arc(1, "", 1, 2).
		Arc(2, "", 2, 3).
		MustBuild()

	runner := arcflow.NewLocalRunner()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	process, err := runner.Interp.Start(ctx, arcflow.BuildRegistry(approveGate()), g, nil)
	require.NoError(t, err)
	runner.Track(process)

	require.NoError(t, runner.StartResumers(ctx, 1))
	defer runner.Stop()

	tok := process.NodeTokens[0]
	require.NoError(t, runner.ResumeAsync(ctx, process.ID, tok, map[string]any{"approved": true}))

	require.Eventually(t, func() bool {
		return process.IsComplete()
	}, time.Second, 10*time.Millisecond)
}

func TestLocalRunner_StartResumers_RejectsDoubleStart(t *testing.T) {
	runner := arcflow.NewLocalRunner()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, runner.StartResumers(ctx, 1))
	defer runner.Stop()

	err := runner.StartResumers(ctx, 1)
	assert.Error(t, err)
}

func TestLocalRunner_LoadProcess_UnknownID(t *testing.T) {
	runner := arcflow.NewLocalRunner()
	_, err := runner.LoadProcess(context.Background(), "missing")
	assert.Error(t, err)
}
