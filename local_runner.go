package arcflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/arcflow/arcflow/internal/resumequeue"
	"github.com/arcflow/arcflow/pkg/resumer"
)

// LocalRunner bundles an in-memory Engine, an Interpreter, and a resumption
// queue/Resumer pair, for development and single-process deployments.
//
// Typical usage:
//
//	runner := arcflow.NewLocalRunner()
//	g := arcflow.NewGraph(1, "approval"). /* ... */ MustBuild()
//	registry := arcflow.BuildRegistry(nil)
//	process, err := runner.Interp.Start(ctx, registry, g, nil)
//	runner.Track(process)
//
//	// Asynchronously resume a parked node-token whose node type reads the
//	// "approved" attribute:
//	_ = runner.StartResumers(ctx, 2)
//	_ = runner.ResumeAsync(ctx, process.ID, token, map[string]any{"approved": true})
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory Engine used by this runner.
	Engine Engine

	// Interp is the Interpreter driving Engine.
	Interp *Interpreter

	// Queue is the in-memory resumption queue used by the Resumer.
	Queue resumequeue.Queue

	// Resumer drains Queue using Interp.
	Resumer *resumer.Resumer

	mu      sync.Mutex
	procs   map[string]*Process
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory engine, an
// in-memory resumption queue, and a Resumer with default config.
func NewLocalRunner() *LocalRunner {
	eng := NewMemoryEngine()
	it := NewInterpreter(eng, nil)
	q := resumequeue.NewInMemoryQueue(1024)

	r := &LocalRunner{
		Engine: eng,
		Interp: it,
		Queue:  q,
		procs:  make(map[string]*Process),
	}
	r.Resumer = resumer.New(it, q, r)
	return r
}

// LoadProcess implements resumer.ProcessLoader by looking up processes this
// runner has seen via Track.
func (r *LocalRunner) LoadProcess(ctx context.Context, processID string) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[processID]
	if !ok {
		return nil, fmt.Errorf("arcflow: local runner has no process %s", processID)
	}
	return p, nil
}

// Track registers process so later resumption requests can find it. Call
// this after Start returns a process whose tokens may later be resumed.
func (r *LocalRunner) Track(process *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[process.ID] = process
}

// StartResumers starts 'concurrency' goroutines that continuously call
// Resumer.ProcessOne(ctx) until Stop cancels them.
func (r *LocalRunner) StartResumers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("arcflow: LocalRunner already started")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()
			for {
				_, err := r.Resumer.ProcessOne(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					log.Printf("arcflow: local runner resumer error: %v", err)
				}
			}
		}()
	}
	return nil
}

// Stop cancels all goroutines started by StartResumers and waits for them
// to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// ResumeAsync enqueues a resumption request for token, applying setAttrs
// before AcceptWithGuard is re-entered.
func (r *LocalRunner) ResumeAsync(ctx context.Context, processID string, token NodeToken, setAttrs map[string]any) error {
	return r.Resumer.Enqueue(ctx, processID, token, setAttrs)
}
