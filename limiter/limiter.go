// Package limiter implements ConcurrencyLimit (C7): a permit broker
// with bounded in-flight count, a bounded FIFO of waiters, per-waiter
// timeouts, and dynamically adjustable capacity.
package limiter

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/endpointkit/endpointkit/internal/asyncutil"
	"github.com/endpointkit/endpointkit/internal/xlog"
	"github.com/google/uuid"
	logging "github.com/sirupsen/logrus"
)

// ErrInvalidLimiterConfig is returned by New and SetMaxConcurrency for
// out-of-range parameters.
var ErrInvalidLimiterConfig = fmt.Errorf("endpointkit/limiter: invalid configuration")

// Config configures a Limiter. MaxConcurrency of 0 means unlimited:
// Acquire always completes synchronously with a no-op permit and
// neither the in-flight count nor the waiter queue is touched.
type Config struct {
	Name                   string
	MaxConcurrency         int
	MaxPendingAcquisitions int
	Timeout                time.Duration
}

// AcquireResult is the outcome of a parked Acquire: either Permit is
// non-nil and Err is nil (a grant), or Err names why no permit was
// returned (ErrConcurrencyLimitTimeout, or synchronously
// ErrTooManyPendingAcquisitions).
type AcquireResult struct {
	Permit *Permit
	Err    error
}

// Snapshot is a read-only view of a Limiter's counters, for
// diagnostics and tests.
type Snapshot struct {
	MaxConcurrency         int
	MaxPendingAcquisitions int
	InFlight               int
	Queued                 int
}

type waiterRecord struct {
	id        uuid.UUID
	future    *asyncutil.Future[AcquireResult]
	scheduler Scheduler
	timer     *time.Timer

	cleanupOnce sync.Once
	elem        *list.Element
}

// Limiter is a ConcurrencyLimit permit broker (C7).
type Limiter struct {
	name    string
	log     *logging.Entry
	metrics metrics

	mu                     sync.Mutex
	acquiredCount          int
	maxConcurrency         int
	maxPendingAcquisitions int
	timeout                time.Duration
	pending                *list.List
}

// New validates cfg and returns a ready Limiter.
func New(cfg Config) (*Limiter, error) {
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("%w: negative max concurrency %d", ErrInvalidLimiterConfig, cfg.MaxConcurrency)
	}
	if cfg.MaxPendingAcquisitions < 0 {
		return nil, fmt.Errorf("%w: negative max pending acquisitions %d", ErrInvalidLimiterConfig, cfg.MaxPendingAcquisitions)
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	return &Limiter{
		name:                   name,
		log:                    xlog.Component("limiter").WithField("limiter", name),
		metrics:                newMetrics(name),
		maxConcurrency:         cfg.MaxConcurrency,
		maxPendingAcquisitions: cfg.MaxPendingAcquisitions,
		timeout:                cfg.Timeout,
		pending:                list.New(),
	}, nil
}

// Acquire attempts to grant a permit, parking if the limiter is at
// capacity and failing synchronously if the pending queue is already
// full. sched dispatches the eventual completion (nil defaults to
// InlineScheduler). reqCtx, if non-nil, cancels the wait when done.
func (l *Limiter) Acquire(reqCtx context.Context, sched Scheduler) *asyncutil.Future[AcquireResult] {
	if sched == nil {
		sched = InlineScheduler{}
	}
	f := asyncutil.New[AcquireResult]()

	l.mu.Lock()
	if l.maxConcurrency <= 0 {
		l.mu.Unlock()
		f.TryComplete(AcquireResult{Permit: &Permit{}})
		return f
	}
	if l.acquiredCount < l.maxConcurrency {
		l.acquiredCount++
		inFlight := l.acquiredCount
		l.mu.Unlock()
		l.metrics.setInFlight(inFlight)
		l.metrics.incGranted()
		f.TryComplete(AcquireResult{Permit: l.newPermit()})
		return f
	}
	if l.pending.Len() >= l.maxPendingAcquisitions {
		l.mu.Unlock()
		l.metrics.incRejected()
		f.TryComplete(AcquireResult{Err: ErrTooManyPendingAcquisitions})
		return f
	}

	rec := &waiterRecord{id: uuid.New(), future: f, scheduler: sched}
	rec.elem = l.pending.PushBack(rec)
	queued := l.pending.Len()
	timeout := l.timeout
	l.mu.Unlock()
	l.metrics.setQueued(queued)

	f.OnCancel(func() { l.cleanupWaiter(rec) })

	if timeout > 0 {
		rec.timer = time.AfterFunc(timeout, func() {
			l.cleanupWaiter(rec)
			sched.Run(func() {
				if f.TryComplete(AcquireResult{Err: ErrConcurrencyLimitTimeout}) {
					l.metrics.incTimedOut()
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

// cleanupWaiter removes rec from the pending queue and stops its
// timeout task, exactly once regardless of how many of {timeout,
// external cancellation, a racing release} reach it first. It does
// not by itself decide who wins the grant — Future's own atomic state
// transition does that.
func (l *Limiter) cleanupWaiter(rec *waiterRecord) {
	rec.cleanupOnce.Do(func() {
		l.mu.Lock()
		if rec.elem != nil {
			l.pending.Remove(rec.elem)
			rec.elem = nil
		}
		queued := l.pending.Len()
		l.mu.Unlock()
		if rec.timer != nil {
			rec.timer.Stop()
		}
		l.metrics.setQueued(queued)
	})
}

// release is invoked at most once per Permit (guarded by the permit's
// own atomic flag). It frees the caller's slot and, if capacity
// allows, wakes the head waiter — never more than one per release.
func (l *Limiter) release(_ *Permit) {
	l.mu.Lock()
	if l.acquiredCount > 0 {
		l.acquiredCount--
	}
	var rec *waiterRecord
	if front := l.pending.Front(); front != nil && l.acquiredCount < l.maxConcurrency {
		rec = front.Value.(*waiterRecord)
		l.pending.Remove(front)
		rec.elem = nil
		l.acquiredCount++
	}
	inFlight, queued := l.acquiredCount, l.pending.Len()
	l.mu.Unlock()

	l.metrics.setInFlight(inFlight)
	l.metrics.setQueued(queued)
	if rec == nil {
		return
	}
	l.grantTo(rec)
}

// grantTo stops rec's timeout task and dispatches its completion on
// rec's own scheduler. If the waiter was already resolved by a racing
// timeout or cancellation, the granted slot is handed back instead of
// leaking it.
func (l *Limiter) grantTo(rec *waiterRecord) {
	rec.cleanupOnce.Do(func() {
		if rec.timer != nil {
			rec.timer.Stop()
		}
	})
	l.metrics.incGranted()
	newPermit := l.newPermit()
	sched, future := rec.scheduler, rec.future
	sched.Run(func() {
		if !future.TryComplete(AcquireResult{Permit: newPermit}) {
			newPermit.Release()
		}
	})
}

// SetMaxConcurrency adjusts capacity, re-evaluated fresh on every
// subsequent Acquire/release. Shrinking never revokes already-granted
// permits; growing immediately drains as many eligible waiters as the
// newly freed capacity allows.
func (l *Limiter) SetMaxConcurrency(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative max concurrency %d", ErrInvalidLimiterConfig, n)
	}

	l.mu.Lock()
	l.maxConcurrency = n
	var grants []*waiterRecord
	for {
		front := l.pending.Front()
		if front == nil || l.acquiredCount >= l.maxConcurrency {
			break
		}
		rec := front.Value.(*waiterRecord)
		l.pending.Remove(front)
		rec.elem = nil
		l.acquiredCount++
		grants = append(grants, rec)
	}
	inFlight, queued := l.acquiredCount, l.pending.Len()
	l.mu.Unlock()

	l.metrics.setInFlight(inFlight)
	l.metrics.setQueued(queued)
	for _, rec := range grants {
		l.grantTo(rec)
	}
	return nil
}

// InFlight reports the current number of acquired permits.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquiredCount
}

// Queued reports the current pending-waiter queue depth.
func (l *Limiter) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Len()
}

// Snapshot returns a point-in-time read of the limiter's counters.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		MaxConcurrency:         l.maxConcurrency,
		MaxPendingAcquisitions: l.maxPendingAcquisitions,
		InFlight:               l.acquiredCount,
		Queued:                 l.pending.Len(),
	}
}

func (l *Limiter) newPermit() *Permit { return &Permit{l: l} }

// Permit is a granted concurrency slot. Release is idempotent: only
// the first call has any effect.
type Permit struct {
	l        *Limiter
	released int32
}

// Release returns the permit. A nil limiter (the unlimited bypass's
// no-op permit) makes Release itself a no-op.
func (p *Permit) Release() {
	if p == nil || p.l == nil {
		return
	}
	if atomic.CompareAndSwapInt32(&p.released, 0, 1) {
		p.l.release(p)
	}
}
