// Package api contains the core building blocks used by the arcflow
// workflow interpreter: the immutable Graph, the NodeToken/ArcToken token
// model, the Process that owns live tokens and attributes, the node-type
// Registry, and the Engine backend interface every state transition flows
// through.
//
// Most callers interact with the higher-level arcflow package, which
// re-exports selected types from here. This package is for advanced use:
// writing a new Engine backend, a new node type, or a new Observer.
//
// # Concepts
//
//   - Graph / Node / Arc: the immutable description of a workflow.
//   - NodeToken / ArcToken / TokenAttr: the runtime token model.
//   - Process: the mutable state of one running instance.
//   - Registry / NodeType: dispatch from a node's type name to its guard and
//     accept action.
//   - Engine: the backend capability set (create/complete tokens, set
//     attributes, mark transaction boundaries) that the interpreter in
//     pkg/interp calls on every state transition.
//   - Observer: read-only lifecycle callbacks for logging and metrics.
//
// See pkg/interp for the interpreter itself and pkg/nodetypes for the
// built-in "start"/"default"/"task"/"auto-discard" node types.
package api
