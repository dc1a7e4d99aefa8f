// Package nodetypes provides the small built-in node-type library every
// graph can rely on: the mandatory "start" and "default" entries, plus two
// supplemental types (park a token for external input, and unconditionally
// discard) commonly needed by real graphs.
package nodetypes

import (
	"context"

	"github.com/arcflow/arcflow/pkg/api"
)

// Start is the node type of a graph's unique start node. Its guard always
// accepts, and its accept action immediately completes with the default
// (unlabeled) output arc, mirroring the "start" node acting as a pass-through
// entry point.
var Start = api.NodeType{
	Guard:  api.DefaultGuard,
	Accept: defaultAccept,
}

// Default is the ordinary pass-through node type: accept, then complete
// along the default output arc. Most nodes in a graph use this type unless
// they need custom guard logic or a distinct accept action.
var Default = api.NodeType{
	Guard:  api.DefaultGuard,
	Accept: defaultAccept,
}

func defaultAccept(ctx context.Context, interp api.Interpreter, token api.NodeToken, process *api.Process) error {
	_, err := interp.CompleteDefaultExecution(ctx, token, process)
	return err
}

// Task models a human or external-system task: its guard always accepts,
// but its accept action leaves the node-token parked rather than calling
// CompleteExecution. Some other actor finishes it later by calling
// CompleteExecution or CompleteDefaultExecution for the same token. Its
// guard ignores token attributes, so re-entering AcceptWithGuard runs the
// same accept action and leaves the token parked again.
var Task = api.NodeType{
	Guard:  api.DefaultGuard,
	Accept: parkAccept,
}

func parkAccept(ctx context.Context, interp api.Interpreter, token api.NodeToken, process *api.Process) error {
	return nil
}

// AutoDiscard always discards its node-token without ever invoking an
// accept action. Useful for graph branches that exist only to be pruned
// under some external condition (spec.md §8 scenario 5).
var AutoDiscard = api.NodeType{
	Guard:  discardGuard,
	Accept: nil,
}

func discardGuard(ctx context.Context, token api.NodeToken, process *api.Process) (api.GuardDecision, error) {
	return api.Discard(), nil
}

// Registry entry names for the built-in types, used by BuildRegistry and
// available for direct reference when composing a larger custom registry.
const (
	TypeStart       = "start"
	TypeDefault     = "default"
	TypeTask        = "task"
	TypeAutoDiscard = "auto-discard"
)

// BuildRegistry returns a MapRegistry seeded with the built-in node types,
// merged with any extra entries the caller supplies. Entries in extra take
// precedence over the built-ins of the same name.
func BuildRegistry(extra map[string]api.NodeType) api.MapRegistry {
	entries := map[string]api.NodeType{
		TypeStart:       Start,
		TypeDefault:     Default,
		TypeTask:        Task,
		TypeAutoDiscard: AutoDiscard,
	}
	for name, nt := range extra {
		entries[name] = nt
	}
	return api.NewMapRegistry(entries)
}
