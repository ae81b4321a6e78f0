// Package xrand centralizes the random source used by weight-based
// strategies, so tests can inject a deterministic one without every
// caller threading a *rand.Rand through constructor options.
package xrand

import "math/rand"

// Source is anything that can produce Int63, matching both this
// package's default and an injected deterministic source in tests.
type Source interface {
	Int63() int64
}

// globalSource adapts the package-level math/rand source, which is
// already safe for concurrent use, to Source.
type globalSource struct{}

func (globalSource) Int63() int64 { return rand.Int63() }

// Default is the process-wide Source used when a caller doesn't
// inject one of its own.
var Default Source = globalSource{}
