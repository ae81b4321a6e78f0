package selector

import (
	"github.com/endpointkit/endpointkit/endpointgroup"
	"github.com/endpointkit/endpointkit/strategy"
)

// Factory is the EndpointSelectionStrategy contract (C4): given a
// group, it produces a Base selector bound to that group and the
// strategy the Factory was built from.
type Factory func(group endpointgroup.Group) *Base

// NewFactory closes over strat, producing a Factory that builds a new
// Base selector per group.
func NewFactory(strat strategy.Strategy) Factory {
	return func(group endpointgroup.Group) *Base {
		return New(group, strat)
	}
}
