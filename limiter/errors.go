package limiter

import "errors"

// ErrConcurrencyLimitTimeout is the failure-form result of an acquire
// whose waiter timed out before a permit became available.
var ErrConcurrencyLimitTimeout = errors.New("endpointkit/limiter: acquire timed out")

// ErrTooManyPendingAcquisitions is returned synchronously by Acquire
// when the pending-waiter queue is already at MaxPendingAcquisitions.
var ErrTooManyPendingAcquisitions = errors.New("endpointkit/limiter: too many pending acquisitions")
