package api

// Process is the mutable state of one running workflow instance. The Graph
// and Registry are shared, read-only references held for the Process's
// lifetime; the Process exclusively owns its token lists and attribute map
// (spec.md §3 "Ownership").
type Process struct {
	ID       string
	Graph    Graph
	Registry Registry

	// NodeTokens and ArcTokens are the live token lists. Order is
	// significant only in that new tokens are prepended (spec.md §4.8,
	// §4.9); callers must not otherwise depend on list order.
	NodeTokens []NodeToken
	ArcTokens  []ArcToken

	// Attrs is keyed by node-token id (spec.md §3 "TokenAttr").
	Attrs map[int][]TokenAttr

	// UserData is an opaque payload carried alongside the process, never
	// inspected by the interpreter.
	UserData any
}

// IsComplete reports whether both live token lists are empty (spec.md §4.10).
func (p *Process) IsComplete() bool {
	return len(p.NodeTokens) == 0 && len(p.ArcTokens) == 0
}

// GetNodeTokenForID returns the live node-token with the given id.
func (p *Process) GetNodeTokenForID(id int) (NodeToken, bool) {
	for _, t := range p.NodeTokens {
		if t.ID == id {
			return t, true
		}
	}
	return NodeToken{}, false
}

// GetArcTokenForID returns the live arc-token with the given id.
func (p *Process) GetArcTokenForID(id int) (ArcToken, bool) {
	for _, t := range p.ArcTokens {
		if t.ID == id {
			return t, true
		}
	}
	return ArcToken{}, false
}

// NodeForToken resolves the Node a node-token currently sits at.
func (p *Process) NodeForToken(t NodeToken) (Node, bool) {
	return p.Graph.Node(t.NodeID)
}

// ArcForToken resolves the Arc an arc-token is traversing.
func (p *Process) ArcForToken(t ArcToken) (Arc, bool) {
	return p.Graph.Arc(t.ArcID)
}

// AttrValue returns the value of key on nodeToken's attribute list, and
// whether exactly one entry with that key exists (spec.md §8, invariant 5).
func (p *Process) AttrValue(nodeToken NodeToken, key string) (any, bool) {
	var value any
	count := 0
	for _, a := range p.Attrs[nodeToken.ID] {
		if a.Key == key {
			value = a.Value
			count++
		}
	}
	if count != 1 {
		return nil, false
	}
	return value, true
}

// ReplaceTokenAttrs overwrites the full attribute list for a node-token.
func (p *Process) ReplaceTokenAttrs(nodeTokenID int, attrs []TokenAttr) {
	if p.Attrs == nil {
		p.Attrs = make(map[int][]TokenAttr)
	}
	p.Attrs[nodeTokenID] = attrs
}

// SetAttr sets or replaces a single attribute entry by key, preserving the
// "keys are unique per node-token" invariant (spec.md §3). Engine backends
// call this from SetTokenAttr.
func (p *Process) SetAttr(nodeTokenID int, key string, value any) {
	if p.Attrs == nil {
		p.Attrs = make(map[int][]TokenAttr)
	}
	attrs := p.Attrs[nodeTokenID]
	for i, a := range attrs {
		if a.Key == key {
			attrs[i].Value = value
			p.Attrs[nodeTokenID] = attrs
			return
		}
	}
	p.Attrs[nodeTokenID] = append(attrs, TokenAttr{Key: key, Value: value})
}

// RemoveAttr deletes a single attribute entry by key, if present. Engine
// backends call this from RemoveTokenAttr.
func (p *Process) RemoveAttr(nodeTokenID int, key string) {
	attrs := p.Attrs[nodeTokenID]
	for i, a := range attrs {
		if a.Key == key {
			p.Attrs[nodeTokenID] = append(attrs[:i], attrs[i+1:]...)
			return
		}
	}
}

// PrependNodeToken adds t to the front of the live node-token list
// (spec.md §4.8: "Prepend the new node-token to the live node-token list").
func (p *Process) PrependNodeToken(t NodeToken) {
	p.NodeTokens = append([]NodeToken{t}, p.NodeTokens...)
}

// PrependArcToken adds t to the front of the live arc-token list
// (spec.md §4.9 step 1).
func (p *Process) PrependArcToken(t ArcToken) {
	p.ArcTokens = append([]ArcToken{t}, p.ArcTokens...)
}

// RemoveNodeToken removes the first live node-token equal to t by identity
// (spec.md §3 "Equality").
func (p *Process) RemoveNodeToken(t NodeToken) {
	for i, nt := range p.NodeTokens {
		if nt.ID == t.ID {
			p.NodeTokens = append(p.NodeTokens[:i], p.NodeTokens[i+1:]...)
			return
		}
	}
}

// RemoveArcToken removes the first live arc-token equal to t by identity.
func (p *Process) RemoveArcToken(t ArcToken) {
	for i, at := range p.ArcTokens {
		if at.ID == t.ID {
			p.ArcTokens = append(p.ArcTokens[:i], p.ArcTokens[i+1:]...)
			return
		}
	}
}

// FirstArcTokenForArc returns the first live arc-token (in current list
// order) whose ArcID equals arcID, implementing the tie-breaking rule of
// spec.md §4.9 ("the first-seen is selected").
func (p *Process) FirstArcTokenForArc(arcID int) (ArcToken, bool) {
	for _, t := range p.ArcTokens {
		if t.ArcID == arcID {
			return t, true
		}
	}
	return ArcToken{}, false
}
