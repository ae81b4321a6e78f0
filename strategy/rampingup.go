package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/endpointkit/endpointkit/endpoint"
)

// RampingUpConfig configures RampingUp.
type RampingUpConfig struct {
	// RampupPeriod is the duration over which a newly introduced
	// endpoint's effective weight climbs from MinWeightPercent of its
	// declared weight to 100%.
	RampupPeriod time.Duration
	// MinWeightPercent is the starting fraction of the declared
	// weight a brand new endpoint is given, in [0, 1].
	MinWeightPercent float64
	// Aggression shapes the ramp curve: effectiveWeight scales with
	// (t/T)^(1/Aggression). Must be > 0; 1 is linear.
	Aggression float64
	// TotalSteps quantizes the ramp into this many discrete increments
	// instead of a continuous curve: the elapsed fraction is floored to
	// the nearest step boundary before the aggression curve is applied,
	// so effective weight changes in TotalSteps discrete jumps over
	// RampupPeriod rather than every rebuild. Zero (the default) means
	// no quantization — a continuous curve.
	TotalSteps int
	// Base is the strategy whose index is rebuilt from the
	// time-adjusted weights on each NewIndex call. Required. Effective
	// weights are recomputed only when NewIndex runs; no timer of its
	// own triggers a rebuild as the ramp progresses.
	Base Strategy
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// RampingUp wraps a base weighted strategy (C6.3) so that endpoints
// freshly introduced into a group ramp their effective weight up
// linearly, or by an aggression power curve, over RampupPeriod. Once
// every tracked endpoint completes its ramp, the wrapper's index
// collapses to the base strategy's own index built from declared
// weights.
type RampingUp struct {
	cfg RampingUpConfig

	introducedAt map[string]time.Time
}

// NewRampingUp validates cfg and returns the ramping-up strategy.
func NewRampingUp(cfg RampingUpConfig) (*RampingUp, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("%w: ramping-up requires a base strategy", ErrInvalidStrategyParameter)
	}
	if cfg.Aggression <= 0 {
		return nil, fmt.Errorf("%w: aggression must be > 0, got %f", ErrInvalidStrategyParameter, cfg.Aggression)
	}
	if cfg.MinWeightPercent < 0 || cfg.MinWeightPercent > 1 {
		return nil, fmt.Errorf("%w: minWeightPercent must be in [0,1], got %f", ErrInvalidStrategyParameter, cfg.MinWeightPercent)
	}
	if cfg.RampupPeriod <= 0 {
		return nil, fmt.Errorf("%w: rampupPeriod must be positive", ErrInvalidStrategyParameter)
	}
	if cfg.TotalSteps < 0 {
		return nil, fmt.Errorf("%w: totalSteps must be >= 0, got %d", ErrInvalidStrategyParameter, cfg.TotalSteps)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cfg.Now = now
	return &RampingUp{cfg: cfg, introducedAt: map[string]time.Time{}}, nil
}

func (r *RampingUp) Name() string { return "ramping-up" }

// NewIndex tracks first-seen time per endpoint (by authority) across
// rebuilds, computes each endpoint's effective weight at "now", and
// delegates index construction to the base strategy over the
// time-adjusted snapshot. When every endpoint has completed its ramp
// the adjusted snapshot is identical to the declared one, so the
// wrapper transparently collapses to the base strategy's index.
func (r *RampingUp) NewIndex(snapshot []endpoint.Endpoint) Index {
	now := r.cfg.Now()
	seen := make(map[string]bool, len(snapshot))
	adjusted := make([]endpoint.Endpoint, len(snapshot))

	for i, e := range snapshot {
		key := e.Authority()
		seen[key] = true
		introducedAt, ok := r.introducedAt[key]
		if !ok {
			introducedAt = now
			r.introducedAt[key] = now
		}

		w, err := e.WithWeight(r.effectiveWeight(e.Weight(), introducedAt, now))
		if err != nil {
			w = e
		}
		adjusted[i] = w
	}

	for key := range r.introducedAt {
		if !seen[key] {
			delete(r.introducedAt, key)
		}
	}

	return r.cfg.Base.NewIndex(adjusted)
}

func (r *RampingUp) effectiveWeight(declared int, introducedAt, now time.Time) int {
	elapsed := now.Sub(introducedAt)
	if elapsed >= r.cfg.RampupPeriod {
		return declared
	}
	if elapsed < 0 {
		elapsed = 0
	}

	minW := int(math.Round(float64(declared) * r.cfg.MinWeightPercent))
	fraction := float64(elapsed) / float64(r.cfg.RampupPeriod)
	if r.cfg.TotalSteps > 0 {
		step := int(fraction * float64(r.cfg.TotalSteps))
		fraction = float64(step) / float64(r.cfg.TotalSteps)
	}
	curved := math.Pow(fraction, 1/r.cfg.Aggression)
	w := int(math.Round(float64(declared) * curved))

	if w < minW {
		w = minW
	}
	if w > declared {
		w = declared
	}
	if w < 0 {
		w = 0
	}
	return w
}
