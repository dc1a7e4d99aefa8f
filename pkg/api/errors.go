package api

import "errors"

// Graph-construction failures (spec.md §7 "Graph errors").
var (
	// ErrNoStartNode is returned by Start when the graph has no node named
	// "start" at depth 0.
	ErrNoStartNode = errors.New("arcflow: graph has no start node")

	// ErrMultipleStartNodes is returned by Start when more than one node
	// satisfies the start predicate.
	ErrMultipleStartNodes = errors.New("arcflow: graph has multiple start nodes")

	// ErrDuplicateNodeID is returned by BuildGraph when two nodes share an id.
	ErrDuplicateNodeID = errors.New("arcflow: duplicate node id")

	// ErrUnknownArcEndpoint is returned by BuildGraph when an arc references
	// a node id not present in the node list.
	ErrUnknownArcEndpoint = errors.New("arcflow: arc references unknown node id")
)

// Lookup failures during interpretation (spec.md §7: "invariant violations,
// treated as fatal"). These are never expected in a correctly built graph
// and registry; the interpreter does not attempt to recover from them.
var (
	// ErrNodeNotFound indicates a token referenced a node id absent from the Graph.
	ErrNodeNotFound = errors.New("arcflow: node not found in graph")

	// ErrNodeTypeNotFound indicates a node's declared type name has no
	// registry entry.
	ErrNodeTypeNotFound = errors.New("arcflow: node type not registered")

	// ErrArcNotFound indicates an arc-token referenced an arc id absent from the Graph.
	ErrArcNotFound = errors.New("arcflow: arc not found in graph")

	// ErrNodeTokenNotFound indicates a node-token id has no corresponding
	// live token or attribute-map entry in the Process.
	ErrNodeTokenNotFound = errors.New("arcflow: node token not found in process")

	// ErrArcTokenNotFound indicates an arc-token id has no corresponding
	// live token in the Process.
	ErrArcTokenNotFound = errors.New("arcflow: arc token not found in process")
)
