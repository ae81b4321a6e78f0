package strategy

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/patrickmn/go-cache"
)

// DefaultMaxRingSize caps the number of virtual nodes built for a
// single ring, regardless of the sum of declared weights.
const DefaultMaxRingSize = 1 << 16

// RingHash is the "ring-hash" consistent-hash strategy (C6.4). Each
// endpoint is inserted into the ring scaledWeight times, hashing
// "host:port#i" per virtual node; a pick hashes the caller's key and
// returns the first ring entry with a key >= h, wrapping around.
type RingHash struct {
	maxRingSize int
	ringCache   *cache.Cache
}

// RingHashConfig configures the ring-hash strategy.
type RingHashConfig struct {
	// MaxRingSize bounds the number of virtual nodes. Zero selects
	// DefaultMaxRingSize.
	MaxRingSize int
}

// NewRingHash validates cfg and returns the ring-hash strategy. A
// content-addressed cache (grounded on the in-memory TTL cache used
// elsewhere in the corpus for short-lived derived state) avoids
// rebuilding an identical ring when a racing writer republishes the
// same multiset the group's own equality check already suppressed.
func NewRingHash(cfg RingHashConfig) (*RingHash, error) {
	size := cfg.MaxRingSize
	if size == 0 {
		size = DefaultMaxRingSize
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: maxRingSize must be >= 1, got %d", ErrInvalidStrategyParameter, size)
	}
	return &RingHash{
		maxRingSize: size,
		ringCache:   cache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

func (RingHash) Name() string { return "ring-hash" }

func (r *RingHash) NewIndex(snapshot []endpoint.Endpoint) Index {
	filtered, total := nonNegativeWeights(snapshot)
	if total == 0 {
		return &ringHashIndex{}
	}

	key := ringCacheKey(filtered)
	if cached, ok := r.ringCache.Get(key); ok {
		return cached.(*ringHashIndex)
	}

	type node struct {
		hash uint32
		ep   endpoint.Endpoint
	}
	var nodes []node
	for _, e := range filtered {
		vnodes := e.Weight()
		if total > r.maxRingSize {
			vnodes = e.Weight() * r.maxRingSize / total
		}
		if vnodes < 1 {
			vnodes = 1
		}
		for i := 0; i < vnodes; i++ {
			h := ringHashString(fmt.Sprintf("%s#%d", e.Authority(), i))
			nodes = append(nodes, node{hash: h, ep: e})
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].hash != nodes[j].hash {
			return nodes[i].hash < nodes[j].hash
		}
		return nodes[i].ep.Authority() < nodes[j].ep.Authority()
	})

	keys := make([]uint32, len(nodes))
	endpoints := make([]endpoint.Endpoint, len(nodes))
	for i, n := range nodes {
		keys[i] = n.hash
		endpoints[i] = n.ep
	}

	idx := &ringHashIndex{keys: keys, endpoints: endpoints}
	r.ringCache.Set(key, idx, cache.DefaultExpiration)
	return idx
}

func ringCacheKey(snapshot []endpoint.Endpoint) string {
	h := fnv.New64a()
	for _, e := range snapshot {
		fmt.Fprintf(h, "%s#%d;", e.Authority(), e.Weight())
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func ringHashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

type ringHashIndex struct {
	keys      []uint32
	endpoints []endpoint.Endpoint
}

func (idx *ringHashIndex) SelectNow(ctx Context) (endpoint.Endpoint, bool) {
	if len(idx.keys) == 0 {
		return endpoint.Endpoint{}, false
	}
	h := ringHashString(ctx.Key)
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= h })
	if i == len(idx.keys) {
		i = 0
	}
	return idx.endpoints[i], true
}
