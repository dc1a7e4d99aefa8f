// Package resumer drains a resumption queue and re-enters the interpreter
// for each parked node-token, applying any attribute updates the resume
// request carries first.
package resumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/arcflow/arcflow/internal/resumequeue"
	"github.com/arcflow/arcflow/pkg/api"
)

// ProcessLoader resolves a process id to its live *api.Process. Callers
// backed by a single in-memory process registry can implement this as a
// map lookup; callers backed by a durable Engine reconstruct the Process
// from storage.
type ProcessLoader interface {
	LoadProcess(ctx context.Context, processID string) (*api.Process, error)
}

// Interpreter is the subset of pkg/interp.Interpreter the Resumer needs.
type Interpreter interface {
	Engine() api.Engine
	AcceptWithGuard(ctx context.Context, token api.NodeToken, process *api.Process) (*api.Process, error)
}

// Resumer pulls resumequeue.Request values and re-drives the interpreter
// for the node-token each one names.
type Resumer struct {
	interp Interpreter
	queue  resumequeue.Queue
	loader ProcessLoader
}

// New creates a Resumer over the given interpreter, queue, and process
// loader.
func New(interp Interpreter, queue resumequeue.Queue, loader ProcessLoader) *Resumer {
	return &Resumer{interp: interp, queue: queue, loader: loader}
}

// Enqueue submits a resumption request for the given node-token.
func (r *Resumer) Enqueue(ctx context.Context, processID string, token api.NodeToken, setAttrs map[string]any) error {
	return r.queue.Enqueue(ctx, resumequeue.Request{
		ProcessID:   processID,
		NodeTokenID: token.ID,
		NodeID:      token.NodeID,
		SetAttrs:    setAttrs,
	})
}

// ProcessOne pulls a single request from the queue and resumes it. Returns
// (processed, error): processed is false only if the context was cancelled
// before a request was obtained.
func (r *Resumer) ProcessOne(ctx context.Context) (bool, error) {
	req, err := r.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, nil
	}

	process, err := r.loader.LoadProcess(ctx, req.ProcessID)
	if err != nil {
		return true, fmt.Errorf("arcflow: load process %s: %w", req.ProcessID, err)
	}

	token, ok := process.GetNodeTokenForID(req.NodeTokenID)
	if !ok {
		return true, fmt.Errorf("%w: node token %d in process %s", api.ErrNodeTokenNotFound, req.NodeTokenID, req.ProcessID)
	}

	engine := r.interp.Engine()
	for key, value := range req.SetAttrs {
		process, err = engine.SetTokenAttr(ctx, process, token, key, value)
		if err != nil {
			return true, err
		}
	}

	_, err = r.interp.AcceptWithGuard(ctx, token, process)
	return true, err
}

// Run drains the queue until ctx is cancelled, calling ProcessOne in a
// loop. Errors from individual requests are reported through onError; a nil
// onError silently drops them.
func (r *Resumer) Run(ctx context.Context, onError func(error)) {
	for {
		_, err := r.ProcessOne(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
