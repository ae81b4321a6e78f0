package strategy

import "github.com/endpointkit/endpointkit/endpoint"

// Sticky is the "sticky" strategy (C6.5): a flat list of endpoints
// indexed by |ctx.Hash| mod n. It is not stable under membership
// change (unlike ring-hash) but is trivial to build.
type Sticky struct{}

// NewSticky returns the sticky-hash strategy. The 64-bit hash used to
// pick an index is always caller-supplied via Context.Hash.
func NewSticky() *Sticky { return &Sticky{} }

func (Sticky) Name() string { return "sticky" }

func (Sticky) NewIndex(snapshot []endpoint.Endpoint) Index {
	filtered, total := nonNegativeWeights(snapshot)
	if total == 0 || len(filtered) == 0 {
		return &stickyIndex{}
	}
	return &stickyIndex{endpoints: filtered}
}

type stickyIndex struct {
	endpoints []endpoint.Endpoint
}

func (idx *stickyIndex) SelectNow(ctx Context) (endpoint.Endpoint, bool) {
	if len(idx.endpoints) == 0 {
		return endpoint.Endpoint{}, false
	}
	i := int(ctx.Hash % uint64(len(idx.endpoints)))
	return idx.endpoints[i], true
}
