package api

import "context"

// Engine is the backend interface through which the interpreter performs
// every persistent state transition (spec.md §4.3). The interpreter never
// mutates persistent state directly; it calls Engine and uses the Process
// value Engine hands back.
//
// Implementations may keep no-op (pure in-memory) persistence or durable
// persistence; the interpreter assumes every call succeeds or returns an
// error it can propagate unchanged (spec.md §7).
type Engine interface {
	// CreateProcess allocates a new Process for the given graph/registry
	// pair and opaque user payload.
	CreateProcess(ctx context.Context, graph Graph, registry Registry, userData any) (*Process, error)

	// CreateNodeToken allocates a unique node-token id, installs the token
	// at node, and may initialize its attributes from incoming's parent
	// node-tokens. incoming may be empty (the start token has none).
	CreateNodeToken(ctx context.Context, process *Process, node Node, incoming []ArcToken) (*Process, NodeToken, error)

	// CreateArcToken allocates a unique arc-token id for a token traversing
	// arc, produced by the completion of parent.
	CreateArcToken(ctx context.Context, process *Process, arc Arc, parent NodeToken) (*Process, ArcToken, error)

	// CompleteNodeToken marks a node-token completed, destroying it from
	// persistence. The interpreter removes it from the live list separately.
	CompleteNodeToken(ctx context.Context, process *Process, token NodeToken) error

	// CompleteArcToken marks an arc-token completed.
	CompleteArcToken(ctx context.Context, process *Process, token ArcToken) error

	// TransactionBoundary flushes any pending work and commits. Its
	// placement is policy of node-type accept actions, never the
	// interpreter (spec.md §4.3).
	TransactionBoundary(ctx context.Context, process *Process) error

	// SetTokenAttr sets or replaces the value for key on token's attribute list.
	SetTokenAttr(ctx context.Context, process *Process, token NodeToken, key string, value any) (*Process, error)

	// RemoveTokenAttr removes key from token's attribute list, if present.
	RemoveTokenAttr(ctx context.Context, process *Process, token NodeToken, key string) (*Process, error)
}
