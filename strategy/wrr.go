package strategy

import (
	"sort"
	"sync/atomic"

	"github.com/endpointkit/endpointkit/endpoint"
)

// WeightedRoundRobin is the "weighted-round-robin" strategy (C6.1): a
// cumulative-weight table walked by a monotonically increasing
// counter, so that over any window of totalWeight consecutive picks
// against a stable index, each endpoint appears exactly weight(e)
// times.
type WeightedRoundRobin struct{}

// NewWeightedRoundRobin returns the WRR strategy. It has no tunables.
func NewWeightedRoundRobin() *WeightedRoundRobin { return &WeightedRoundRobin{} }

func (WeightedRoundRobin) Name() string { return "weighted-round-robin" }

func (WeightedRoundRobin) NewIndex(snapshot []endpoint.Endpoint) Index {
	filtered, total := nonNegativeWeights(snapshot)
	if total == 0 {
		return &wrrIndex{}
	}
	cumulative := make([]int, len(filtered))
	sum := 0
	for i, e := range filtered {
		sum += e.Weight()
		cumulative[i] = sum
	}
	return &wrrIndex{endpoints: filtered, cumulative: cumulative, total: total}
}

type wrrIndex struct {
	endpoints  []endpoint.Endpoint
	cumulative []int
	total      int
	counter    uint64
}

func (idx *wrrIndex) SelectNow(Context) (endpoint.Endpoint, bool) {
	if idx.total == 0 {
		return endpoint.Endpoint{}, false
	}
	n := atomic.AddUint64(&idx.counter, 1) - 1
	target := int(n%uint64(idx.total)) + 1
	i := sort.SearchInts(idx.cumulative, target)
	return idx.endpoints[i], true
}
