package endpointgroup

import "github.com/endpointkit/endpointkit/endpoint"

// Static is an EndpointGroup frozen at construction time. It never
// republishes after NewStatic returns.
type Static struct {
	*base
}

// NewStatic returns a group whose snapshot never changes. Empty input
// is allowed regardless of allowEmptyEndpoints, since there is no
// later update that could restore a prior non-empty snapshot.
func NewStatic(name string, strat strategyRef, endpoints ...endpoint.Endpoint) *Static {
	b := newBase(name, strat, true)
	snap := make(Snapshot, len(endpoints))
	copy(snap, endpoints)
	b.publish(snap, EqualMultiset)
	return &Static{base: b}
}
