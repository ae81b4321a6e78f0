// Package strategy implements the concrete weighted selection
// strategies (C6) on top of the Strategy/Index contracts shared with
// package selector (C4/C5).
package strategy

import (
	"errors"

	"github.com/endpointkit/endpointkit/endpoint"
)

// ErrInvalidStrategyParameter is returned by strategy constructors
// when a tunable is out of range.
var ErrInvalidStrategyParameter = errors.New("endpointkit/strategy: invalid strategy parameter")

// Context carries the per-request information a keyed strategy needs
// to pick deterministically. Unkeyed strategies (WRR, weighted
// random) ignore it entirely.
type Context struct {
	// Key is hashed internally by ring-hash to find a ring position.
	Key string
	// Hash is a caller-precomputed 64-bit hash used directly by the
	// sticky-hash strategy ("a caller-supplied 64-bit hasher over the
	// request context").
	Hash uint64
}

// Index is the rebuilt, immutable selection structure a Strategy
// produces from one endpoint snapshot. A single Index is shared by
// every concurrent SelectNow call until the next rebuild replaces it.
type Index interface {
	// SelectNow picks an endpoint for ctx, or (zero, false) if the
	// index has no eligible endpoint (e.g. an empty snapshot or all
	// weights zero).
	SelectNow(ctx Context) (endpoint.Endpoint, bool)
}

// Strategy is the closed tagged-variant factory (C4/C6): given a
// snapshot, it builds a new Index. Rebuilds happen off the selection
// hot path; Strategy implementations must be safe to call
// concurrently with SelectNow on indexes they previously returned.
type Strategy interface {
	// Name identifies the strategy for logs and metrics labels, one
	// of the names in the External Interfaces configuration table.
	Name() string
	NewIndex(snapshot []endpoint.Endpoint) Index
}

// nonNegativeWeights filters out endpoints whose weight is zero,
// preserving input order, and returns the summed weight of the rest.
func nonNegativeWeights(snapshot []endpoint.Endpoint) (filtered []endpoint.Endpoint, total int) {
	filtered = make([]endpoint.Endpoint, 0, len(snapshot))
	for _, e := range snapshot {
		if e.Weight() <= 0 {
			continue
		}
		filtered = append(filtered, e)
		total += e.Weight()
	}
	return filtered, total
}
