// Package interp implements the graph-interpretation loop: the token
// lifecycle, the arc/node transition protocol, join-merge semantics, guard
// dispatch, and the contract with the Engine backend that materializes and
// commits state (spec.md §4).
package interp

import (
	"context"
	"fmt"

	"github.com/arcflow/arcflow/pkg/api"
)

// Interpreter drives one or more Process values through a shared Graph and
// Registry, using a single Engine backend for every state transition. It
// implements api.Interpreter so node-type accept actions can call back into
// CompleteExecution / CompleteDefaultExecution.
type Interpreter struct {
	engine   api.Engine
	observer api.Observer
}

var _ api.Interpreter = (*Interpreter)(nil)

// New builds an Interpreter over the given Engine backend. If observer is
// nil, a NoopObserver is used.
func New(engine api.Engine, observer api.Observer) *Interpreter {
	if observer == nil {
		observer = api.NoopObserver{}
	}
	return &Interpreter{engine: engine, observer: observer}
}

// Engine implements api.Interpreter.
func (it *Interpreter) Engine() api.Engine { return it.engine }

// Start locates the unique start node, creates a Process and its initial
// node-token, and invokes AcceptWithGuard (spec.md §4.4).
func (it *Interpreter) Start(ctx context.Context, registry api.Registry, graph api.Graph, userData any) (*api.Process, error) {
	startNode, err := graph.StartNode()
	if err != nil {
		return nil, err
	}

	process, err := it.engine.CreateProcess(ctx, graph, registry, userData)
	if err != nil {
		return nil, err
	}

	process, token, err := it.engine.CreateNodeToken(ctx, process, startNode, nil)
	if err != nil {
		return nil, err
	}
	process.PrependNodeToken(token)

	it.observer.OnProcessStarted(ctx, process)

	process, err = it.AcceptWithGuard(ctx, token, process)
	if err != nil {
		return nil, err
	}

	if process.IsComplete() {
		it.observer.OnProcessCompleted(ctx, process)
	}
	return process, nil
}

// AcceptWithGuard looks up the node type at token's node, invokes its guard,
// and acts on the decision (spec.md §4.5). It is re-entered to resume a
// parked node-token whose guard or accept action reads state, such as a
// token attribute, that has changed since the token parked.
func (it *Interpreter) AcceptWithGuard(ctx context.Context, token api.NodeToken, process *api.Process) (*api.Process, error) {
	node, ok := process.NodeForToken(token)
	if !ok {
		return nil, fmt.Errorf("%w: node id %d", api.ErrNodeNotFound, token.NodeID)
	}

	nodeType, ok := process.Registry.Lookup(node.TypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrNodeTypeNotFound, node.TypeName)
	}

	decision, err := nodeType.Guard(ctx, token, process)
	if err != nil {
		return nil, err
	}
	it.observer.OnGuardDecision(ctx, process, token, decision)

	switch decision.Kind {
	case api.DecisionAccept:
		if err := nodeType.Accept(ctx, it, token, process); err != nil {
			return nil, err
		}
		return process, nil

	case api.DecisionDiscard:
		if err := it.engine.CompleteNodeToken(ctx, process, token); err != nil {
			return nil, err
		}
		process.RemoveNodeToken(token)
		it.observer.OnNodeTokenCompleted(ctx, process, token)
		return process, nil

	case api.DecisionSkip:
		return it.CompleteExecution(ctx, token, decision.ArcLabel, process)

	default:
		return nil, fmt.Errorf("arcflow: unknown guard decision kind %d", decision.Kind)
	}
}

// CompleteExecution finishes token and fans out along every output arc of
// its node whose label equals outputArcLabel, in the graph's output-arc
// order, strictly depth-first (spec.md §4.6, §5).
func (it *Interpreter) CompleteExecution(ctx context.Context, token api.NodeToken, outputArcLabel string, process *api.Process) (*api.Process, error) {
	node, ok := process.NodeForToken(token)
	if !ok {
		return nil, fmt.Errorf("%w: node id %d", api.ErrNodeNotFound, token.NodeID)
	}

	if err := it.engine.CompleteNodeToken(ctx, process, token); err != nil {
		return nil, err
	}
	process.RemoveNodeToken(token)
	it.observer.OnNodeTokenCompleted(ctx, process, token)

	for _, arc := range process.Graph.OutputArcs(node.ID) {
		if arc.Label != outputArcLabel {
			continue
		}

		var arcToken api.ArcToken
		var err error
		process, arcToken, err = it.engine.CreateArcToken(ctx, process, arc, token)
		if err != nil {
			return nil, err
		}
		it.observer.OnArcTokenCreated(ctx, process, arcToken)

		process, err = it.AcceptToken(ctx, arcToken, process)
		if err != nil {
			return nil, err
		}
	}

	return process, nil
}

// CompleteDefaultExecution is CompleteExecution(token, "", process)
// (spec.md §6).
func (it *Interpreter) CompleteDefaultExecution(ctx context.Context, token api.NodeToken, process *api.Process) (*api.Process, error) {
	return it.CompleteExecution(ctx, token, "", process)
}

// AcceptToken dispatches an arriving arc-token to AcceptSingle or AcceptJoin
// depending on whether its target node is a join (spec.md §4.7).
func (it *Interpreter) AcceptToken(ctx context.Context, arcToken api.ArcToken, process *api.Process) (*api.Process, error) {
	arc, ok := process.ArcForToken(arcToken)
	if !ok {
		return nil, fmt.Errorf("%w: arc id %d", api.ErrArcNotFound, arcToken.ArcID)
	}

	targetNode, ok := process.Graph.Node(arc.EndNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node id %d", api.ErrNodeNotFound, arc.EndNodeID)
	}

	if targetNode.IsJoin {
		return it.AcceptJoin(ctx, arcToken, process)
	}
	return it.AcceptSingle(ctx, arcToken, process)
}

// AcceptSingle creates a new node-token at the arc-token's target node,
// completes the arc-token, and invokes AcceptWithGuard (spec.md §4.8).
func (it *Interpreter) AcceptSingle(ctx context.Context, arcToken api.ArcToken, process *api.Process) (*api.Process, error) {
	arc, ok := process.ArcForToken(arcToken)
	if !ok {
		return nil, fmt.Errorf("%w: arc id %d", api.ErrArcNotFound, arcToken.ArcID)
	}
	targetNode, ok := process.Graph.Node(arc.EndNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node id %d", api.ErrNodeNotFound, arc.EndNodeID)
	}

	var nodeToken api.NodeToken
	var err error
	process, nodeToken, err = it.engine.CreateNodeToken(ctx, process, targetNode, []api.ArcToken{arcToken})
	if err != nil {
		return nil, err
	}

	if err := it.engine.CompleteArcToken(ctx, process, arcToken); err != nil {
		return nil, err
	}
	process.RemoveArcToken(arcToken)
	it.observer.OnArcTokenCompleted(ctx, process, arcToken)

	process.PrependNodeToken(nodeToken)

	return it.AcceptWithGuard(ctx, nodeToken, process)
}

// AcceptJoin implements the join-completion predicate of spec.md §4.9: a
// join node waits until, for every one of its input arcs sharing the just-
// arrived arc-token's label, at least one live arc-token is pending.
func (it *Interpreter) AcceptJoin(ctx context.Context, arcToken api.ArcToken, process *api.Process) (*api.Process, error) {
	process.PrependArcToken(arcToken)

	arc, ok := process.ArcForToken(arcToken)
	if !ok {
		return nil, fmt.Errorf("%w: arc id %d", api.ErrArcNotFound, arcToken.ArcID)
	}
	targetNode, ok := process.Graph.Node(arc.EndNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node id %d", api.ErrNodeNotFound, arc.EndNodeID)
	}

	var inputArcs []api.Arc
	for _, in := range process.Graph.InputArcs(targetNode.ID) {
		if in.Label == arc.Label {
			inputArcs = append(inputArcs, in)
		}
	}

	inputTokens := make([]api.ArcToken, 0, len(inputArcs))
	for _, in := range inputArcs {
		t, ok := process.FirstArcTokenForArc(in.ID)
		if !ok {
			continue
		}
		inputTokens = append(inputTokens, t)
	}

	if len(inputTokens) != len(inputArcs) {
		it.observer.OnJoinParked(ctx, process, arcToken)
		return process, nil
	}

	var nodeToken api.NodeToken
	var err error
	process, nodeToken, err = it.engine.CreateNodeToken(ctx, process, targetNode, inputTokens)
	if err != nil {
		return nil, err
	}

	for _, t := range inputTokens {
		process.RemoveArcToken(t)
	}
	for _, t := range inputTokens {
		if err := it.engine.CompleteArcToken(ctx, process, t); err != nil {
			return nil, err
		}
		it.observer.OnArcTokenCompleted(ctx, process, t)
	}

	process.PrependNodeToken(nodeToken)
	it.observer.OnJoinFired(ctx, process, nodeToken)

	return it.AcceptWithGuard(ctx, nodeToken, process)
}

// IsComplete reports whether process has no live tokens of either kind
// (spec.md §4.10).
func IsComplete(process *api.Process) bool {
	return process.IsComplete()
}
