// Package arcflow interprets a directed workflow graph by advancing typed
// tokens across its nodes and arcs.
//
// A Graph describes the shape of a workflow: Nodes, each carrying a
// TypeName that selects its guard and accept behavior from a Registry, and
// Arcs connecting them, each carrying a Label used for fan-out/fan-in
// matching. A Process is one running instance of a Graph: it owns the live
// NodeToken and ArcToken lists and any TokenAttr values attached to its
// node-tokens.
//
// An Interpreter (pkg/interp) drives a Process forward by calling its
// Engine backend on every state transition — creating and completing
// tokens — and invoking the Registry's guard/accept
// pair for every node-token that becomes ready to fire.
//
//	g := arcflow.NewGraph(1, "approval").
//	    Node(1, "start", arcflow.TypeStart).
//	    Node(2, "review", arcflow.TypeTask).
//	    Node(3, "done", arcflow.TypeDefault).
//	    Arc(1, "", 1, 2).
//	    Arc(2, "", 2, 3).
//	    MustBuild()
//
//	eng := arcflow.NewMemoryEngine()
//	it := arcflow.NewInterpreter(eng, nil)
//	process, err := it.Start(ctx, arcflow.BuildRegistry(nil), g, nil)
//
// See pkg/api for the full type catalogue, pkg/interp for the interpreter
// itself, and pkg/nodetypes for the built-in node types.
package arcflow
