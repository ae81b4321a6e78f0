// Package selector implements the endpoint-selection strategy factory
// (C4) and the asynchronous base selector (C5): pending-selection
// queue, group-change wake-ups, and per-request timeout, shared by
// every concrete strategy in package strategy.
package selector

// Scheduler dispatches a completion callback. Callers typically pass
// an event-loop-backed Scheduler so a Select continuation observes the
// original request-context affinity, restoring it before user code
// runs instead of continuing on whatever goroutine completed the
// selection.
type Scheduler interface {
	Run(func())
}

// InlineScheduler runs the callback synchronously, on whatever
// goroutine completes the selection (the group's publish goroutine,
// or the caller's own goroutine for an immediate SelectNow hit).
type InlineScheduler struct{}

func (InlineScheduler) Run(f func()) { f() }

// GoroutineScheduler runs the callback on its own goroutine, useful
// when callers don't have an event loop of their own and don't want
// the group's publish path blocked by slow callbacks.
type GoroutineScheduler struct{}

func (GoroutineScheduler) Run(f func()) { go f() }

// SchedulerFunc adapts a plain function to Scheduler.
type SchedulerFunc func(func())

func (f SchedulerFunc) Run(g func()) { f(g) }
