package strategy_test

import (
	"testing"
	"time"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/strategy"
)

func TestRampingUpValidation(t *testing.T) {
	base := strategy.NewWeightedRoundRobin()
	cases := []strategy.RampingUpConfig{
		{Base: nil, Aggression: 1, RampupPeriod: time.Second},
		{Base: base, Aggression: 0, RampupPeriod: time.Second},
		{Base: base, Aggression: 1, MinWeightPercent: -0.1, RampupPeriod: time.Second},
		{Base: base, Aggression: 1, MinWeightPercent: 1.1, RampupPeriod: time.Second},
		{Base: base, Aggression: 1, RampupPeriod: 0},
	}
	for i, c := range cases {
		if _, err := strategy.NewRampingUp(c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestRampingUpEffectiveWeightClimbs(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := now
	r, err := strategy.NewRampingUp(strategy.RampingUpConfig{
		Base:             strategy.NewWeightedRoundRobin(),
		RampupPeriod:     10 * time.Second,
		MinWeightPercent: 0,
		Aggression:       1,
		Now:              func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("NewRampingUp: %s", err)
	}

	e := weighted(t, "new-ep", 1, 10)

	clock = now
	idx1 := r.NewIndex([]endpoint.Endpoint{e})
	counts1 := map[string]int{}
	for i := 0; i < 10; i++ {
		got, ok := idx1.SelectNow(strategy.Context{})
		if ok {
			counts1[got.Authority()]++
		}
	}
	// At t=0 with MinWeightPercent 0, the endpoint's effective weight
	// is 0, so it must never be selected yet.
	if counts1["new-ep:1"] != 0 {
		t.Fatalf("expected zero picks at t=0, got %v", counts1)
	}

	clock = now.Add(10 * time.Second)
	idx2 := r.NewIndex([]endpoint.Endpoint{e})
	got, ok := idx2.SelectNow(strategy.Context{})
	if !ok || !got.Equal(e) {
		t.Fatalf("expected the endpoint selected once fully ramped up")
	}
}

func TestRampingUpTotalStepsQuantizesWeight(t *testing.T) {
	now := time.Unix(2000, 0)
	clock := now
	r, err := strategy.NewRampingUp(strategy.RampingUpConfig{
		Base:             strategy.NewWeightedRandomWithSource(fixedSource(0)),
		RampupPeriod:     10 * time.Second,
		MinWeightPercent: 0,
		Aggression:       1,
		TotalSteps:       2,
		Now:              func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("NewRampingUp: %s", err)
	}

	e := weighted(t, "stepped-ep", 1, 10)

	// Introduce the endpoint at t=0; its ramp is measured from here.
	clock = now
	r.NewIndex([]endpoint.Endpoint{e})

	// With two steps over a 10s period, the first step boundary sits at
	// 5s. At t=4s the elapsed fraction (0.4) quantizes down to the 0
	// step, so the endpoint's effective weight is still 0 and it must
	// never be selected.
	clock = now.Add(4 * time.Second)
	idx := r.NewIndex([]endpoint.Endpoint{e})
	if _, ok := idx.SelectNow(strategy.Context{}); ok {
		t.Fatalf("expected zero effective weight before the first step boundary")
	}

	// At t=6s the elapsed fraction (0.6) quantizes down to the 1/2 step,
	// giving the endpoint a non-zero effective weight.
	clock = now.Add(6 * time.Second)
	idx = r.NewIndex([]endpoint.Endpoint{e})
	got, ok := idx.SelectNow(strategy.Context{})
	if !ok || !got.Equal(e) {
		t.Fatalf("expected a non-zero effective weight past the first step boundary")
	}
}

type fixedSource int64

func (f fixedSource) Int63() int64 { return int64(f) }
