package endpointgroup

// Composite is the union EndpointGroup (C2): its snapshot is the
// concatenation of its children's current snapshots (duplicates
// preserved as produced), and it republishes whenever any child does.
// Its WhenReady completes the first time any child publication makes
// the union non-trivial to observe, not when every child is ready.
type Composite struct {
	*base
	children []Group
}

// Of returns a Composite over groups, sharing strat as its nominal
// selection strategy.
func Of(name string, strat strategyRef, groups ...Group) *Composite {
	c := &Composite{
		base:     newBase(name, strat, true),
		children: append([]Group(nil), groups...),
	}
	for _, child := range groups {
		child.AddListener(func(Snapshot) { c.recompute() }, false)
	}
	c.recompute()
	return c
}

func (c *Composite) recompute() {
	union := Snapshot{}
	anyPublished := false
	for _, child := range c.children {
		snap := child.Endpoints()
		if snap != nil {
			anyPublished = true
		}
		union = append(union, snap...)
	}
	if !anyPublished {
		return
	}
	c.publish(union, EqualMultiset)
}
