package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the interpreter for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay token movement. Observers only report;
// they cannot influence the interpreter's decisions.
type Observer interface {
	// OnProcessStarted is called once the start node-token has been created,
	// before acceptWithGuard runs for it.
	OnProcessStarted(ctx context.Context, process *Process)

	// OnProcessCompleted is called at the end of Start when the process is
	// already complete. It is not called when a later AcceptWithGuard or
	// CompleteExecution call completes the process.
	OnProcessCompleted(ctx context.Context, process *Process)

	// OnGuardDecision is called after a node type's guard returns, before
	// the decision is acted on.
	OnGuardDecision(ctx context.Context, process *Process, token NodeToken, decision GuardDecision)

	// OnNodeTokenCompleted is called right after a node-token is completed
	// (discarded, skipped, or fully executed).
	OnNodeTokenCompleted(ctx context.Context, process *Process, token NodeToken)

	// OnArcTokenCreated is called right after completeExecution creates an
	// arc-token for a matching output arc.
	OnArcTokenCreated(ctx context.Context, process *Process, token ArcToken)

	// OnArcTokenCompleted is called right after an arc-token is consumed,
	// either by acceptSingle or by a join firing.
	OnArcTokenCompleted(ctx context.Context, process *Process, token ArcToken)

	// OnJoinParked is called when an arriving arc-token at a join target
	// does not complete its cohort.
	OnJoinParked(ctx context.Context, process *Process, token ArcToken)

	// OnJoinFired is called when a join's cohort completes and its
	// node-token is created.
	OnJoinFired(ctx context.Context, process *Process, token NodeToken)
}

// NoopObserver is an Observer that does nothing. It is the default when no
// observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnProcessStarted(ctx context.Context, process *Process)  {}
func (NoopObserver) OnProcessCompleted(ctx context.Context, process *Process) {}
func (NoopObserver) OnGuardDecision(ctx context.Context, process *Process, token NodeToken, decision GuardDecision) {
}
func (NoopObserver) OnNodeTokenCompleted(ctx context.Context, process *Process, token NodeToken) {}
func (NoopObserver) OnArcTokenCreated(ctx context.Context, process *Process, token ArcToken)      {}
func (NoopObserver) OnArcTokenCompleted(ctx context.Context, process *Process, token ArcToken)    {}
func (NoopObserver) OnJoinParked(ctx context.Context, process *Process, token ArcToken)           {}
func (NoopObserver) OnJoinFired(ctx context.Context, process *Process, token NodeToken)           {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnProcessStarted(ctx context.Context, process *Process) {
	for _, o := range c.observers {
		o.OnProcessStarted(ctx, process)
	}
}

func (c *CompositeObserver) OnProcessCompleted(ctx context.Context, process *Process) {
	for _, o := range c.observers {
		o.OnProcessCompleted(ctx, process)
	}
}

func (c *CompositeObserver) OnGuardDecision(ctx context.Context, process *Process, token NodeToken, decision GuardDecision) {
	for _, o := range c.observers {
		o.OnGuardDecision(ctx, process, token, decision)
	}
}

func (c *CompositeObserver) OnNodeTokenCompleted(ctx context.Context, process *Process, token NodeToken) {
	for _, o := range c.observers {
		o.OnNodeTokenCompleted(ctx, process, token)
	}
}

func (c *CompositeObserver) OnArcTokenCreated(ctx context.Context, process *Process, token ArcToken) {
	for _, o := range c.observers {
		o.OnArcTokenCreated(ctx, process, token)
	}
}

func (c *CompositeObserver) OnArcTokenCompleted(ctx context.Context, process *Process, token ArcToken) {
	for _, o := range c.observers {
		o.OnArcTokenCompleted(ctx, process, token)
	}
}

func (c *CompositeObserver) OnJoinParked(ctx context.Context, process *Process, token ArcToken) {
	for _, o := range c.observers {
		o.OnJoinParked(ctx, process, token)
	}
}

func (c *CompositeObserver) OnJoinFired(ctx context.Context, process *Process, token NodeToken) {
	for _, o := range c.observers {
		o.OnJoinFired(ctx, process, token)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs interpreter lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnProcessStarted(ctx context.Context, process *Process) {
	o.Logger.InfoContext(ctx, "process_started", slog.String("process_id", process.ID))
}

func (o *LoggingObserver) OnProcessCompleted(ctx context.Context, process *Process) {
	o.Logger.InfoContext(ctx, "process_completed", slog.String("process_id", process.ID))
}

func (o *LoggingObserver) OnGuardDecision(ctx context.Context, process *Process, token NodeToken, decision GuardDecision) {
	o.Logger.DebugContext(ctx, "guard_decision",
		slog.String("process_id", process.ID),
		slog.Int("node_token_id", token.ID),
		slog.Int("node_id", token.NodeID),
		slog.Int("decision", int(decision.Kind)),
		slog.String("arc_label", decision.ArcLabel),
	)
}

func (o *LoggingObserver) OnNodeTokenCompleted(ctx context.Context, process *Process, token NodeToken) {
	o.Logger.DebugContext(ctx, "node_token_completed",
		slog.String("process_id", process.ID),
		slog.Int("node_token_id", token.ID),
		slog.Int("node_id", token.NodeID),
	)
}

func (o *LoggingObserver) OnArcTokenCreated(ctx context.Context, process *Process, token ArcToken) {
	o.Logger.DebugContext(ctx, "arc_token_created",
		slog.String("process_id", process.ID),
		slog.Int("arc_token_id", token.ID),
		slog.Int("arc_id", token.ArcID),
	)
}

func (o *LoggingObserver) OnArcTokenCompleted(ctx context.Context, process *Process, token ArcToken) {
	o.Logger.DebugContext(ctx, "arc_token_completed",
		slog.String("process_id", process.ID),
		slog.Int("arc_token_id", token.ID),
		slog.Int("arc_id", token.ArcID),
	)
}

func (o *LoggingObserver) OnJoinParked(ctx context.Context, process *Process, token ArcToken) {
	o.Logger.DebugContext(ctx, "join_parked",
		slog.String("process_id", process.ID),
		slog.Int("arc_token_id", token.ID),
		slog.Int("arc_id", token.ArcID),
	)
}

func (o *LoggingObserver) OnJoinFired(ctx context.Context, process *Process, token NodeToken) {
	o.Logger.InfoContext(ctx, "join_fired",
		slog.String("process_id", process.ID),
		slog.Int("node_token_id", token.ID),
		slog.Int("node_id", token.NodeID),
	)
}

// BasicMetrics collects simple counters. It implements Observer, and can be
// combined with LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	processesStarted   atomic.Int64
	processesCompleted atomic.Int64
	nodeTokensFired    atomic.Int64
	joinsFired         atomic.Int64
	joinsParked        atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ProcessesStarted   int64
	ProcessesCompleted int64
	ProcessesPending   int64
	NodeTokensFired    int64
	JoinsFired         int64
	JoinsParked        int64
}

func (m *BasicMetrics) OnProcessStarted(ctx context.Context, process *Process) {
	m.processesStarted.Add(1)
}

func (m *BasicMetrics) OnProcessCompleted(ctx context.Context, process *Process) {
	m.processesCompleted.Add(1)
}

func (m *BasicMetrics) OnNodeTokenCompleted(ctx context.Context, process *Process, token NodeToken) {
	m.nodeTokensFired.Add(1)
}

func (m *BasicMetrics) OnJoinFired(ctx context.Context, process *Process, token NodeToken) {
	m.joinsFired.Add(1)
}

func (m *BasicMetrics) OnJoinParked(ctx context.Context, process *Process, token ArcToken) {
	m.joinsParked.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.processesStarted.Load()
	completed := m.processesCompleted.Load()
	return BasicMetricsSnapshot{
		ProcessesStarted:   started,
		ProcessesCompleted: completed,
		ProcessesPending:   started - completed,
		NodeTokensFired:    m.nodeTokensFired.Load(),
		JoinsFired:         m.joinsFired.Load(),
		JoinsParked:        m.joinsParked.Load(),
	}
}
