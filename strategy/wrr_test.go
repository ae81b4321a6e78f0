package strategy_test

import (
	"testing"

	"github.com/endpointkit/endpointkit/endpoint"
	"github.com/endpointkit/endpointkit/strategy"
)

func weighted(t *testing.T, host string, port, weight int) endpoint.Endpoint {
	t.Helper()
	e, err := endpoint.Of(host, port)
	if err != nil {
		t.Fatalf("endpoint.Of: %s", err)
	}
	e, err = e.WithWeight(weight)
	if err != nil {
		t.Fatalf("WithWeight: %s", err)
	}
	return e
}

func TestWRRDistributionS1(t *testing.T) {
	a := weighted(t, "a", 1, 1)
	b := weighted(t, "b", 1, 2)
	c := weighted(t, "c", 1, 3)

	idx := strategy.NewWeightedRoundRobin().NewIndex([]endpoint.Endpoint{a, b, c})

	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		e, ok := idx.SelectNow(strategy.Context{})
		if !ok {
			t.Fatalf("SelectNow returned false")
		}
		counts[e.Authority()]++
	}

	if counts["a:1"] != 1 || counts["b:1"] != 2 || counts["c:1"] != 3 {
		t.Fatalf("unexpected distribution: %v", counts)
	}
}

func TestWRRZeroWeightNeverSelected(t *testing.T) {
	a := weighted(t, "a", 1, 0)
	b := weighted(t, "b", 1, 1)
	idx := strategy.NewWeightedRoundRobin().NewIndex([]endpoint.Endpoint{a, b})

	for i := 0; i < 10; i++ {
		e, ok := idx.SelectNow(strategy.Context{})
		if !ok {
			t.Fatalf("SelectNow returned false")
		}
		if e.Equal(a) {
			t.Fatalf("zero-weight endpoint was selected")
		}
	}
}

func TestWRREmptyGroupReturnsFalse(t *testing.T) {
	idx := strategy.NewWeightedRoundRobin().NewIndex(nil)
	if _, ok := idx.SelectNow(strategy.Context{}); ok {
		t.Fatalf("expected SelectNow to return false for empty group")
	}
}

func TestWRRSingleEndpointAlwaysReturned(t *testing.T) {
	a := weighted(t, "solo", 1, 1)
	idx := strategy.NewWeightedRoundRobin().NewIndex([]endpoint.Endpoint{a})
	for i := 0; i < 5; i++ {
		e, ok := idx.SelectNow(strategy.Context{})
		if !ok || !e.Equal(a) {
			t.Fatalf("expected solo endpoint every time")
		}
	}
}
