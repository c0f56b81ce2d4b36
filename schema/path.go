package schema

// Path tracks the model UIDs visited on the current branch of a recursive
// schema walk. Component schemas can reference each other in cycles; walkers
// must fail with a ComponentCycleError instead of recursing forever.
type Path struct {
	seen  map[string]struct{}
	order []string
}

// NewPath returns an empty traversal path.
func NewPath() *Path {
	return &Path{seen: make(map[string]struct{})}
}

// Enter records uid on the path, failing when the uid is already present.
func (p *Path) Enter(uid string) error {
	if _, ok := p.seen[uid]; ok {
		return &ComponentCycleError{Path: append(append([]string(nil), p.order...), uid)}
	}
	p.seen[uid] = struct{}{}
	p.order = append(p.order, uid)
	return nil
}

// Leave removes the most recent uid from the path. Callers pair every
// successful Enter with a deferred Leave.
func (p *Path) Leave(uid string) {
	delete(p.seen, uid)
	if n := len(p.order); n > 0 && p.order[n-1] == uid {
		p.order = p.order[:n-1]
	}
}

// Depth returns the current nesting depth.
func (p *Path) Depth() int {
	return len(p.order)
}
