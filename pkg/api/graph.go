package api

import "fmt"

// NodeSource is the origin descriptor carried by a Node. It is used only to
// locate the start node and for sub-workflow bookkeeping; the interpreter
// otherwise ignores it.
type NodeSource struct {
	// WorkflowName is the name of the workflow (or sub-workflow) the node
	// belongs to.
	WorkflowName string
	// WorkflowVersion is the version label of that workflow.
	WorkflowVersion string
	// Instance is a deployment-local label for a particular graph instance,
	// e.g. distinguishing two inlined copies of the same sub-workflow.
	Instance string
	// Depth is the sub-workflow nesting depth; depth 0 is the top-level graph.
	Depth int
}

// Node is an immutable description of one point in the graph. Nodes are
// built once by BuildGraph and never mutated afterward.
type Node struct {
	ID int

	// TypeName is the key into the node-type registry.
	TypeName string

	// DisplayName is a human-readable label, not interpreted by the core.
	DisplayName string

	Source NodeSource

	// IsJoin marks a node that waits for one arc-token per (label-matching)
	// input arc before firing — see acceptJoin.
	IsJoin bool

	// Extra is an opaque per-node-type configuration payload. The core never
	// inspects it; node-type guards/accept actions decode it themselves.
	Extra any
}

// IsStart reports whether n is the graph's unique start node, per the
// hard-coded predicate in spec.md §3: name literally "start", depth 0.
func (n Node) IsStart() bool {
	return n.TypeName == "start" && n.Source.Depth == 0
}

// Arc is an immutable directed edge. Multiple arcs may share a Label; that
// is how a node fans out on a named outcome.
type Arc struct {
	ID          int
	Label       string
	StartNodeID int
	EndNodeID   int
}

// Graph is an immutable, indexed description of a workflow's nodes and arcs.
// Build one with BuildGraph; Graph values are safe to share across any
// number of Process instances and interpreter invocations.
type Graph struct {
	ID   int
	Name string

	nodes   map[int]Node
	inArcs  map[int][]Arc
	outArcs map[int][]Arc
	arcByID map[int]Arc
}

// BuildGraph indexes nodes by id and computes, for every node, its incoming
// and outgoing arc lists. Duplicate node ids and arcs referencing unknown
// node ids are construction errors (spec.md §4.1).
func BuildGraph(id int, name string, nodes []Node, arcs []Arc) (Graph, error) {
	nodeIndex := make(map[int]Node, len(nodes))
	for _, n := range nodes {
		if _, exists := nodeIndex[n.ID]; exists {
			return Graph{}, fmt.Errorf("%w: %d", ErrDuplicateNodeID, n.ID)
		}
		nodeIndex[n.ID] = n
	}

	inArcs := make(map[int][]Arc, len(nodes))
	outArcs := make(map[int][]Arc, len(nodes))
	arcByID := make(map[int]Arc, len(arcs))
	for _, a := range arcs {
		if _, ok := nodeIndex[a.StartNodeID]; !ok {
			return Graph{}, fmt.Errorf("%w: arc %d start %d", ErrUnknownArcEndpoint, a.ID, a.StartNodeID)
		}
		if _, ok := nodeIndex[a.EndNodeID]; !ok {
			return Graph{}, fmt.Errorf("%w: arc %d end %d", ErrUnknownArcEndpoint, a.ID, a.EndNodeID)
		}
		outArcs[a.StartNodeID] = append(outArcs[a.StartNodeID], a)
		inArcs[a.EndNodeID] = append(inArcs[a.EndNodeID], a)
		arcByID[a.ID] = a
	}

	return Graph{
		ID:      id,
		Name:    name,
		nodes:   nodeIndex,
		inArcs:  inArcs,
		outArcs: outArcs,
		arcByID: arcByID,
	}, nil
}

// Node returns the node with the given id.
func (g Graph) Node(id int) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// OutputArcs returns the arcs starting at nodeID, in the order given to
// BuildGraph. The interpreter relies on this order for its depth-first
// fan-out traversal (spec.md §5).
func (g Graph) OutputArcs(nodeID int) []Arc {
	return g.outArcs[nodeID]
}

// InputArcs returns the arcs ending at nodeID, in the order given to BuildGraph.
func (g Graph) InputArcs(nodeID int) []Arc {
	return g.inArcs[nodeID]
}

// Arc looks up an arc by id.
func (g Graph) Arc(id int) (Arc, bool) {
	a, ok := g.arcByID[id]
	return a, ok
}

// StartNode returns the graph's unique start node. It fails with
// ErrNoStartNode or ErrMultipleStartNodes if the invariant in spec.md §3
// does not hold.
func (g Graph) StartNode() (Node, error) {
	var found Node
	count := 0
	for _, n := range g.nodes {
		if n.IsStart() {
			found = n
			count++
		}
	}
	switch count {
	case 0:
		return Node{}, ErrNoStartNode
	case 1:
		return found, nil
	default:
		return Node{}, ErrMultipleStartNodes
	}
}
