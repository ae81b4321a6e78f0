package endpointgroup

import (
	"sync"

	"github.com/endpointkit/endpointkit/endpoint"
)

// Dynamic is a mutable EndpointGroup (C2): SetEndpoints,
// AddEndpoint, and RemoveEndpoint all funnel through the same publish
// protocol as every other variant.
type Dynamic struct {
	*base

	// updateMu serializes SetEndpoints/AddEndpoint/RemoveEndpoint so
	// read-modify-write add/remove calls can't race each other; it is
	// never held while invoking listeners.
	updateMu sync.Mutex
}

// DynamicOption configures NewDynamic.
type DynamicOption func(*Dynamic)

// AllowEmptyEndpoints lets a Dynamic group publish an empty set. By
// default, setting an empty set is a no-op and the previous
// non-empty snapshot is retained.
func AllowEmptyEndpoints() DynamicOption {
	return func(d *Dynamic) { d.base.allowEmpty = true }
}

// NewDynamic returns an empty Dynamic group using strat for
// selection.
func NewDynamic(name string, strat strategyRef, opts ...DynamicOption) *Dynamic {
	d := &Dynamic{base: newBase(name, strat, false)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetEndpoints replaces the group's snapshot. Per the publish
// protocol, listeners only fire if the new multiset (endpoint
// identity plus weight) differs from the current one; if
// allowEmptyEndpoints is false and newEndpoints is empty, the call is
// a no-op.
func (d *Dynamic) SetEndpoints(newEndpoints ...endpoint.Endpoint) bool {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	snap := make(Snapshot, len(newEndpoints))
	copy(snap, newEndpoints)
	return d.publish(snap, EqualMultiset)
}

// AddEndpoint appends e to the current snapshot and republishes.
func (d *Dynamic) AddEndpoint(e endpoint.Endpoint) bool {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	current := d.Endpoints()
	next := make(Snapshot, len(current)+1)
	copy(next, current)
	next[len(current)] = e
	return d.publish(next, EqualMultiset)
}

// RemoveEndpoint removes the first endpoint structurally Equal (host,
// ipAddr, port; weight ignored) to e, and republishes.
func (d *Dynamic) RemoveEndpoint(e endpoint.Endpoint) bool {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	current := d.Endpoints()
	next := make(Snapshot, 0, len(current))
	removed := false
	for _, existing := range current {
		if !removed && existing.Equal(e) {
			removed = true
			continue
		}
		next = append(next, existing)
	}
	if !removed {
		return false
	}
	return d.publish(next, EqualMultiset)
}
