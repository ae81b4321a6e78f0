package selector

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/endpointgroup"
	"github.com/endpointkit/endpointkit/internal/asyncutil"
	"github.com/endpointkit/endpointkit/internal/xlog"
	"github.com/endpointkit/endpointkit/strategy"
	"github.com/google/uuid"
	logging "github.com/sirupsen/logrus"
)

// Result is the outcome of a parked Select: either Endpoint is valid
// and Err is nil (a grant), or Err names why no endpoint was
// returned (ErrSelectionTimeout for the timeout-as-error variant);
// the nil-on-timeout variant simply leaves Endpoint invalid with a
// nil Err.
type Result struct {
	Endpoint endpoint.Endpoint
	OK       bool
	Err      error
}

// pendingRecord is one parked selection: request context, deadline,
// completion handle, and its scheduled timeout task.
type pendingRecord struct {
	id        uuid.UUID
	key       strategy.Context
	future    *asyncutil.Future[Result]
	scheduler Scheduler
	timer     *time.Timer

	cleanupOnce sync.Once
	elem        *list.Element
}

// Base is the asynchronous selector shared by every concrete strategy
// (C5): SelectNow, the pending-selection FIFO, group-change wake-ups,
// and per-request timeouts. Concrete strategies only supply the
// rebuilt Index (package strategy); Base supplies everything else.
type Base struct {
	log      *logging.Entry
	group    endpointgroup.Group
	strat    strategy.Strategy
	listener endpointgroup.ListenerHandle
	metrics  metrics

	// rebuildMu ensures at most one rebuild computes a new Index at a
	// time per selector; the heavy work (hashing, sorting, cumulative
	// tables) happens here, off any caller's selection hot path,
	// against a local builder, and the result is swapped into idx
	// under a separate, much shorter critical section.
	rebuildMu sync.Mutex
	idxMu     sync.RWMutex
	idx       strategy.Index

	pendingMu sync.Mutex
	pending   *list.List
}

// New wires a Base selector to group using strat, registering a group
// listener that rebuilds the index and wakes parked selections on
// every snapshot transition.
func New(group endpointgroup.Group, strat strategy.Strategy) *Base {
	b := &Base{
		log:     xlog.Component("selector").WithField("strategy", strat.Name()),
		group:   group,
		strat:   strat,
		pending: list.New(),
		metrics: newMetrics(strat.Name()),
	}
	b.rebuild(group.Endpoints())
	b.listener = group.AddListener(func(snap endpointgroup.Snapshot) { b.rebuild(snap) }, false)
	return b
}

// Close unregisters the selector from its group. It does not cancel
// any pending selections; callers owning those futures are
// responsible for cancelling their own request contexts.
func (b *Base) Close() {
	b.group.RemoveListener(b.listener)
}

// SelectNow is the non-blocking pick: it reports false only when the
// group currently has no candidate (or the strategy filtered all of
// them out).
func (b *Base) SelectNow(key strategy.Context) (endpoint.Endpoint, bool) {
	b.idxMu.RLock()
	idx := b.idx
	b.idxMu.RUnlock()
	if idx == nil {
		return endpoint.Endpoint{}, false
	}
	return idx.SelectNow(key)
}

// PendingFutures reports the current pending-selection queue depth,
// exposed for tests asserting cleanup.
func (b *Base) PendingFutures() int {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return b.pending.Len()
}

// SelectOrNil parks until an endpoint is available or timeout
// elapses, resolving to (zero Endpoint, OK=false, Err=nil) on
// timeout. timeout <= 0 means wait forever.
func (b *Base) SelectOrNil(reqCtx context.Context, key strategy.Context, sched Scheduler, timeout time.Duration) *asyncutil.Future[Result] {
	return b.selectAsync(reqCtx, key, sched, timeout, false)
}

// SelectOrTimeoutError is SelectOrNil's "fails with
// SelectionTimeoutException" variant: on timeout the future resolves
// to Err=ErrSelectionTimeout.
func (b *Base) SelectOrTimeoutError(reqCtx context.Context, key strategy.Context, sched Scheduler, timeout time.Duration) *asyncutil.Future[Result] {
	return b.selectAsync(reqCtx, key, sched, timeout, true)
}

func (b *Base) selectAsync(reqCtx context.Context, key strategy.Context, sched Scheduler, timeout time.Duration, timeoutIsError bool) *asyncutil.Future[Result] {
	if sched == nil {
		sched = InlineScheduler{}
	}

	if e, ok := b.SelectNow(key); ok {
		f := asyncutil.New[Result]()
		f.TryComplete(Result{Endpoint: e, OK: true})
		b.metrics.incServed()
		return f
	}

	f := asyncutil.New[Result]()
	rec := &pendingRecord{id: uuid.New(), key: key, future: f, scheduler: sched}

	b.pendingMu.Lock()
	rec.elem = b.pending.PushBack(rec)
	b.pendingMu.Unlock()
	b.metrics.setPending(b.PendingFutures())
	b.metrics.incParked()

	f.OnCancel(func() { b.cleanupRecord(rec) })

	if timeout > 0 {
		rec.timer = time.AfterFunc(timeout, func() {
			b.cleanupRecord(rec)
			result := Result{}
			if timeoutIsError {
				result.Err = ErrSelectionTimeout
			}
			sched.Run(func() {
				if f.TryComplete(result) {
					b.metrics.incTimedOut()
				}
			})
		})
	}

	if reqCtx != nil {
		go func() {
			select {
			case <-reqCtx.Done():
				f.Cancel()
			case <-f.Done():
			}
		}()
	}

	return f
}

// cleanupRecord removes rec from the pending queue and stops its
// timeout task. It is safe to call more than once (via both the
// timeout path and external cancellation racing each other) and is
// idempotent per record.
func (b *Base) cleanupRecord(rec *pendingRecord) {
	rec.cleanupOnce.Do(func() {
		b.pendingMu.Lock()
		if rec.elem != nil {
			b.pending.Remove(rec.elem)
			rec.elem = nil
		}
		b.pendingMu.Unlock()
		if rec.timer != nil {
			rec.timer.Stop()
		}
		b.metrics.setPending(b.PendingFutures())
	})
}

// rebuild installs a freshly built Index for snap and then wakes
// every pending selection it can now satisfy.
func (b *Base) rebuild(snap endpointgroup.Snapshot) {
	b.rebuildMu.Lock()
	idx := b.strat.NewIndex(snap)
	b.rebuildMu.Unlock()

	b.idxMu.Lock()
	b.idx = idx
	b.idxMu.Unlock()

	b.wake()
}

// wake processes the pending queue in FIFO order: it keeps completing
// the head waiter against the freshly rebuilt index until either the
// queue empties or the new snapshot still can't satisfy the next
// waiter, at which point it stops — that waiter, and everyone behind
// it, gets another chance on the next group update.
func (b *Base) wake() {
	for {
		b.pendingMu.Lock()
		front := b.pending.Front()
		if front == nil {
			b.pendingMu.Unlock()
			return
		}
		rec := front.Value.(*pendingRecord)
		b.pendingMu.Unlock()

		e, ok := b.SelectNow(rec.key)
		if !ok {
			return
		}

		// Claim the record synchronously regardless of when the
		// scheduler gets around to running the completion, so this
		// loop always makes forward progress.
		b.cleanupRecord(rec)
		b.metrics.incServed()

		result := Result{Endpoint: e, OK: true}
		sched := rec.scheduler
		future := rec.future
		sched.Run(func() { future.TryComplete(result) })
	}
}
