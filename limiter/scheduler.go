package limiter

// Scheduler dispatches a waiter's completion callback, mirroring
// package selector's Scheduler — duplicated rather than imported so
// limiter carries no dependency on selector (or vice versa).
type Scheduler interface {
	Run(func())
}

// InlineScheduler runs the callback synchronously, on whatever
// goroutine grants or times out the waiter.
type InlineScheduler struct{}

func (InlineScheduler) Run(f func()) { f() }

// GoroutineScheduler runs the callback on its own goroutine.
type GoroutineScheduler struct{}

func (GoroutineScheduler) Run(f func()) { go f() }

// SchedulerFunc adapts a plain function to Scheduler.
type SchedulerFunc func(func())

func (f SchedulerFunc) Run(g func()) { f(g) }
