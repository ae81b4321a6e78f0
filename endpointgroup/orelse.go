package endpointgroup

// OrElse is the fallback-pair EndpointGroup (C2): its snapshot is
// primary's endpoints when non-empty, else fallback's. It republishes
// whenever either side changes, and propagates listener events from
// both.
type OrElse struct {
	*base
	primary, fallback Group
}

// NewOrElse returns an EndpointGroup that prefers primary's snapshot
// and falls back to fallback's when primary is empty.
func NewOrElse(name string, primary, fallback Group) *OrElse {
	o := &OrElse{
		base:     newBase(name, primary.Strategy(), true),
		primary:  primary,
		fallback: fallback,
	}
	recompute := func(Snapshot) { o.recompute() }
	primary.AddListener(recompute, false)
	fallback.AddListener(recompute, false)
	o.recompute()
	return o
}

func (o *OrElse) recompute() {
	primary, fallback := o.primary.Endpoints(), o.fallback.Endpoints()
	if primary == nil && fallback == nil {
		return
	}
	snap := primary
	if len(snap) == 0 {
		snap = fallback
	}
	if snap == nil {
		snap = Snapshot{}
	}
	o.publish(snap, EqualMultiset)
}
