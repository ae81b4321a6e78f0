// Package endpointgroup implements the observable endpoint-set
// abstraction (C2): static, dynamic, composite, orElse, and the
// listener/whenReady publish protocol all the concrete selectors in
// package strategy and the async base in package selector build on.
package endpointgroup

import (
	"sync"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/internal/xlog"
	logging "github.com/sirupsen/logrus"
)

// Snapshot is an immutable point-in-time view of a group's endpoints.
// Order is not significant; a group built with explicit duplicates may
// contain them. The identity of a Snapshot value returned by
// Group.Endpoints is stable across calls until the next publication
// (Invariant 1), so callers may short-circuit on reference equality.
type Snapshot []endpoint.Endpoint

// Listener is invoked exactly once per distinct snapshot transition,
// in registration order, never while the group's internal lock is
// held.
type Listener func(Snapshot)

// ListenerHandle identifies a registered Listener for RemoveListener.
type ListenerHandle uint64

// Group is the observable endpoint-set contract implemented by
// Static, Dynamic, Composite, and OrElse.
type Group interface {
	// Endpoints returns the current snapshot. O(1); the same
	// reference until the next publication.
	Endpoints() Snapshot
	// Strategy returns the selection strategy associated with this
	// group at construction.
	Strategy() strategyRef
	// AddListener registers l. If notifyLatest is true and a
	// snapshot already exists, l is invoked synchronously with it
	// before this call returns.
	AddListener(l Listener, notifyLatest bool) ListenerHandle
	// RemoveListener unregisters a previously added listener. It is
	// a no-op if h is unknown.
	RemoveListener(h ListenerHandle)
	// WhenReady returns a channel closed exactly once, after which
	// Ready() holds the first non-empty snapshot (or the first
	// snapshot at all, for groups that allow empty sets).
	WhenReady() <-chan struct{}
	// Ready returns the snapshot WhenReady became ready with. Valid
	// only after WhenReady's channel is closed.
	Ready() Snapshot
}

// strategyRef is a minimal marker so Group doesn't need to import
// package strategy or selector; concrete strategies implement it via
// strategy.Strategy, which package selector consumes directly.
type strategyRef interface {
	Name() string
}

// base implements the listener/whenReady/publish machinery shared by
// every variant. Static and Dynamic publish their own snapshots;
// Composite and OrElse also embed base and publish snapshots derived
// from the Groups they compose.
type base struct {
	mu            sync.RWMutex
	snapshot      Snapshot
	allowEmpty    bool
	strategy      strategyRef
	listeners     []registeredListener
	nextHandle    ListenerHandle
	readyCh       chan struct{}
	readyOnce     sync.Once
	readySnapshot Snapshot
	log           *logging.Entry
	metrics       metrics
}

// registeredListener pairs a Listener with the handle it was
// registered under. Listeners are kept in an ordered slice, not a map,
// so publish fires them in registration order.
type registeredListener struct {
	handle   ListenerHandle
	listener Listener
}

func newBase(name string, strat strategyRef, allowEmpty bool) *base {
	return &base{
		allowEmpty: allowEmpty,
		strategy:   strat,
		readyCh:    make(chan struct{}),
		log:        xlog.Component("endpointgroup").WithField("group", name),
		metrics:    newMetrics(name),
	}
}

func (b *base) Strategy() strategyRef { return b.strategy }

func (b *base) Endpoints() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

func (b *base) WhenReady() <-chan struct{} {
	return b.readyCh
}

func (b *base) Ready() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readySnapshot
}

func (b *base) AddListener(l Listener, notifyLatest bool) ListenerHandle {
	b.mu.Lock()
	b.nextHandle++
	h := b.nextHandle
	b.listeners = append(b.listeners, registeredListener{handle: h, listener: l})
	snap := b.snapshot
	hasSnapshot := snap != nil
	b.mu.Unlock()

	if notifyLatest && hasSnapshot {
		b.safeInvoke(l, snap)
	}
	return h
}

func (b *base) RemoveListener(h ListenerHandle) {
	b.mu.Lock()
	for i, rl := range b.listeners {
		if rl.handle == h {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}

// publish installs newSnapshot iff it differs from the current one
// (per equalFn), then invokes listeners outside the lock. It returns
// true if a publication occurred.
func (b *base) publish(newSnapshot Snapshot, equalFn func(a, b Snapshot) bool) bool {
	if len(newSnapshot) == 0 && !b.allowEmpty {
		return false
	}

	b.mu.Lock()
	if b.snapshot != nil && equalFn(b.snapshot, newSnapshot) {
		b.mu.Unlock()
		return false
	}
	b.snapshot = newSnapshot
	first := false
	if b.readySnapshot == nil {
		b.readySnapshot = newSnapshot
		first = true
	}
	listeners := make([]Listener, len(b.listeners))
	for i, rl := range b.listeners {
		listeners[i] = rl.listener
	}
	b.mu.Unlock()

	b.metrics.setSize(len(newSnapshot))
	b.metrics.incPublications()

	if first {
		b.readyOnce.Do(func() { close(b.readyCh) })
	}

	for _, l := range listeners {
		b.safeInvoke(l, newSnapshot)
	}
	return true
}

// safeInvoke runs l, recovering and logging a panic so one listener
// can never break the group or its other listeners.
func (b *base) safeInvoke(l Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("endpoint group listener panicked: %v", r)
			b.metrics.incListenerPanics()
		}
	}()
	l(snap)
}

// EqualMultiset reports whether a and b contain the same endpoints as
// a multiset, comparing each endpoint including weight
// (Endpoint.EqualWithWeight), per setEndpoints's publish contract.
func EqualMultiset(a, b Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ea := range a {
		matched := false
		for j, eb := range b {
			if used[j] {
				continue
			}
			if ea.EqualWithWeight(eb) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
