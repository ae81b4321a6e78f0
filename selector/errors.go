package selector

import "errors"

// ErrSelectionTimeout is the failure-form result of SelectOrTimeoutError
// when no endpoint became available before the deadline.
var ErrSelectionTimeout = errors.New("endpointkit/selector: selection timed out")
