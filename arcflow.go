// Package arcflow re-exports the types most callers need to build and run a
// graph without digging into pkg/api, pkg/interp, or pkg/nodetypes.
package arcflow

import (
	"context"
	"database/sql"

	"github.com/arcflow/arcflow/internal/backend"
	"github.com/arcflow/arcflow/pkg/api"
	"github.com/arcflow/arcflow/pkg/interp"
	"github.com/arcflow/arcflow/pkg/nodetypes"
)

// Re-export key types so users don't need to dig into pkg/api.
type (
	Graph                = api.Graph
	Node                 = api.Node
	NodeSource           = api.NodeSource
	Arc                  = api.Arc
	NodeToken            = api.NodeToken
	ArcToken             = api.ArcToken
	TokenAttr            = api.TokenAttr
	Process              = api.Process
	Engine               = api.Engine
	Registry             = api.Registry
	NodeType             = api.NodeType
	GuardFunc            = api.GuardFunc
	AcceptFunc           = api.AcceptFunc
	GuardDecision        = api.GuardDecision
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	Interpreter          = interp.Interpreter
)

// Re-export guard-decision and registry constructors.
var (
	Accept         = api.Accept
	Discard        = api.Discard
	Skip           = api.Skip
	DefaultGuard   = api.DefaultGuard
	BuildGraph     = api.BuildGraph
	NewMapRegistry = api.NewMapRegistry

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Built-in node types and the registry that carries them.
const (
	TypeStart       = nodetypes.TypeStart
	TypeDefault     = nodetypes.TypeDefault
	TypeTask        = nodetypes.TypeTask
	TypeAutoDiscard = nodetypes.TypeAutoDiscard
)

// BuildRegistry returns a Registry seeded with the built-in node types
// ("start", "default", "task", "auto-discard"), merged with extra.
func BuildRegistry(extra map[string]api.NodeType) api.MapRegistry {
	return nodetypes.BuildRegistry(extra)
}

// NewInterpreter builds an Interpreter over engine. If observer is nil, a
// NoopObserver is used.
func NewInterpreter(engine Engine, observer Observer) *Interpreter {
	return interp.New(engine, observer)
}

// NewMemoryEngine returns an Engine backed entirely by in-process maps. It
// has no durability and is suited to tests and short-lived processes.
func NewMemoryEngine() Engine {
	return backend.NewMemory()
}

// NewSQLiteEngine returns an Engine that persists process and token state
// in a SQLite database opened with the modernc.org/sqlite driver.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return backend.NewSQLite(db)
}

// Start locates graph's unique start node, creates a Process under
// registry, and drives it forward until every token is either parked or
// the process completes.
func Start(ctx context.Context, it *Interpreter, registry Registry, graph Graph, userData any) (*Process, error) {
	return it.Start(ctx, registry, graph, userData)
}

// Resume re-enters AcceptWithGuard for a parked node-token, typically after
// an external event has changed an attribute its guard reads.
func Resume(ctx context.Context, it *Interpreter, token NodeToken, process *Process) (*Process, error) {
	return it.AcceptWithGuard(ctx, token, process)
}
