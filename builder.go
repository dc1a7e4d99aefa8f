package arcflow

import (
	"fmt"

	"github.com/arcflow/arcflow/pkg/api"
)

// GraphBuilder provides a fluent API for assembling a Graph:
//
//	g, err := arcflow.NewGraph(1, "approval").
//	    Node(1, "start", "start").
//	    Node(2, "review", "default").
//	    Node(3, "end", "default").
//	    Arc(1, "", 1, 2).
//	    Arc(2, "", 2, 3).
//	    Build()
type GraphBuilder struct {
	id    int
	name  string
	nodes []api.Node
	arcs  []api.Arc
	err   error
}

// NewGraph creates a graph builder with the given id and name.
func NewGraph(id int, name string) *GraphBuilder {
	return &GraphBuilder{id: id, name: name}
}

// Node appends a node with the given id, display name, and registry type
// name, at depth 0 of the top-level workflow named by NewGraph.
func (b *GraphBuilder) Node(id int, displayName, typeName string) *GraphBuilder {
	return b.NodeWithSource(id, displayName, typeName, api.NodeSource{WorkflowName: b.name})
}

// NodeWithSource appends a node with an explicit NodeSource, for graphs that
// inline sub-workflows at nonzero depth.
func (b *GraphBuilder) NodeWithSource(id int, displayName, typeName string, source api.NodeSource) *GraphBuilder {
	b.nodes = append(b.nodes, api.Node{
		ID:          id,
		TypeName:    typeName,
		DisplayName: displayName,
		Source:      source,
	})
	return b
}

// Join marks the most recently added node as a join.
func (b *GraphBuilder) Join() *GraphBuilder {
	if len(b.nodes) == 0 {
		b.err = fmt.Errorf("arcflow: Join called with no nodes added")
		return b
	}
	b.nodes[len(b.nodes)-1].IsJoin = true
	return b
}

// Extra attaches an opaque configuration payload to the most recently added
// node.
func (b *GraphBuilder) Extra(extra any) *GraphBuilder {
	if len(b.nodes) == 0 {
		b.err = fmt.Errorf("arcflow: Extra called with no nodes added")
		return b
	}
	b.nodes[len(b.nodes)-1].Extra = extra
	return b
}

// Arc appends a directed arc with the given id, label, start node id, and
// end node id. An empty label is the default output arc.
func (b *GraphBuilder) Arc(id int, label string, startNodeID, endNodeID int) *GraphBuilder {
	b.arcs = append(b.arcs, api.Arc{
		ID:          id,
		Label:       label,
		StartNodeID: startNodeID,
		EndNodeID:   endNodeID,
	})
	return b
}

// Build validates and returns the assembled Graph.
func (b *GraphBuilder) Build() (api.Graph, error) {
	if b.err != nil {
		return api.Graph{}, b.err
	}
	return api.BuildGraph(b.id, b.name, b.nodes, b.arcs)
}

// MustBuild is like Build but panics on error. Useful for package-level
// graph literals.
func (b *GraphBuilder) MustBuild() api.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
