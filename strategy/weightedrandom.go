package strategy

import (
	"sync/atomic"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/internal/xrand"
)

// WeightedRandom is the "weighted-random" distribution strategy
// (C6.2): each endpoint is drawn at random, weighted by the picks it
// has left in the current "turn", and is excluded once it has been
// picked weight(e) times within that turn. When every entry is full, all
// counters reset atomically and a new turn begins. This guarantees
// that within one full turn each endpoint is returned exactly
// weight(e) times.
type WeightedRandom struct {
	src xrand.Source
}

// NewWeightedRandom returns the weighted-random strategy using the
// package-level random source (internal/xrand).
func NewWeightedRandom() *WeightedRandom {
	return &WeightedRandom{src: xrand.Default}
}

// NewWeightedRandomWithSource is NewWeightedRandom with an injectable
// xrand.Source, for deterministic tests.
func NewWeightedRandomWithSource(src xrand.Source) *WeightedRandom {
	return &WeightedRandom{src: src}
}

func (WeightedRandom) Name() string { return "weighted-random" }

func (w *WeightedRandom) NewIndex(snapshot []endpoint.Endpoint) Index {
	filtered, total := nonNegativeWeights(snapshot)
	if total == 0 {
		return &weightedRandomIndex{}
	}
	entries := make([]*wrEntry, len(filtered))
	for i, e := range filtered {
		entries[i] = &wrEntry{endpoint: e, weight: e.Weight()}
	}
	src := w.src
	if src == nil {
		src = xrand.Default
	}
	return &weightedRandomIndex{entries: entries, total: total, src: src}
}

type wrEntry struct {
	endpoint endpoint.Endpoint
	weight   int
	count    int64 // atomic
	full     int32 // atomic bool
}

type weightedRandomIndex struct {
	entries []*wrEntry
	total   int
	src     xrand.Source

	resetting int32 // atomic CAS guard for the single-winner reset
}

func (idx *weightedRandomIndex) SelectNow(Context) (endpoint.Endpoint, bool) {
	if idx.total == 0 {
		return endpoint.Endpoint{}, false
	}

	for attempt := 0; attempt < len(idx.entries)*4+4; attempt++ {
		remaining := idx.remainingWeight()
		if remaining == 0 {
			idx.reset()
			remaining = idx.total
		}

		target := int(idx.src.Int63() % int64(remaining))
		e, ok := idx.pick(target)
		if !ok {
			continue
		}
		return e.endpoint, true
	}
	return endpoint.Endpoint{}, false
}

func (idx *weightedRandomIndex) remainingWeight() int {
	sum := 0
	for _, e := range idx.entries {
		if atomic.LoadInt32(&e.full) == 0 {
			sum += e.weight - int(atomic.LoadInt64(&e.count))
		}
	}
	return sum
}

// pick walks the non-full entries in order, consuming target as an
// offset into their remaining-weight ranges, and atomically claims one
// pick against the winning entry.
func (idx *weightedRandomIndex) pick(target int) (*wrEntry, bool) {
	for _, e := range idx.entries {
		if atomic.LoadInt32(&e.full) != 0 {
			continue
		}
		remaining := e.weight - int(atomic.LoadInt64(&e.count))
		if remaining <= 0 {
			continue
		}
		if target < remaining {
			n := atomic.AddInt64(&e.count, 1)
			if n >= int64(e.weight) {
				atomic.StoreInt32(&e.full, 1)
			}
			return e, true
		}
		target -= remaining
	}
	return nil, false
}

// reset is guarded by a single-winner CAS: only one goroutine performs
// the reset; the rest simply observe the result.
func (idx *weightedRandomIndex) reset() {
	if !atomic.CompareAndSwapInt32(&idx.resetting, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&idx.resetting, 0)
	for _, e := range idx.entries {
		atomic.StoreInt64(&e.count, 0)
		atomic.StoreInt32(&e.full, 0)
	}
}
