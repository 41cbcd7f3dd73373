package scoring

import (
	"math"
	"testing"

	"dexsignal/internal/domain"
)

func weightSum(w map[string]float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum
}

func TestNormalizeWeightsDefaults(t *testing.T) {
	w := NormalizeWeights(nil)

	if len(w) != 5 {
		t.Fatalf("expected 5 weights, got %d", len(w))
	}
	if math.Abs(weightSum(w)-1) > 1e-9 {
		t.Errorf("default weights sum to %v, want 1", weightSum(w))
	}
	// Defaults already sum to 1, so normalization must be a no-op.
	if w[domain.MetricGoodTrader] != 0.30 {
		t.Errorf("good trader weight = %v, want 0.30", w[domain.MetricGoodTrader])
	}
}

func TestNormalizeWeightsOverride(t *testing.T) {
	w := NormalizeWeights(map[string]float64{
		domain.MetricTVL:    1.0,
		domain.MetricVolume: 1.0,
	})

	if math.Abs(weightSum(w)-1) > 1e-9 {
		t.Errorf("weights sum to %v, want 1", weightSum(w))
	}
	if w[domain.MetricTVL] != w[domain.MetricVolume] {
		t.Errorf("equal overrides produced unequal weights: %v vs %v",
			w[domain.MetricTVL], w[domain.MetricVolume])
	}
	if w[domain.MetricTVL] <= w[domain.MetricGoodTrader] {
		t.Error("boosted weight not greater than un-boosted")
	}
}

func TestNormalizeWeightsIgnoresUnknownAndNegative(t *testing.T) {
	w := NormalizeWeights(map[string]float64{
		"bogus":          5.0,
		domain.MetricTVL: -2.0,
	})

	if _, ok := w["bogus"]; ok {
		t.Error("unknown metric name leaked into weights")
	}
	if w[domain.MetricTVL] != 0 {
		t.Errorf("negative override = %v, want 0", w[domain.MetricTVL])
	}
	if math.Abs(weightSum(w)-1) > 1e-9 {
		t.Errorf("weights sum to %v, want 1", weightSum(w))
	}
}

// Overriding everything to zero falls back to the defaults rather than
// dividing by zero.
func TestNormalizeWeightsAllZero(t *testing.T) {
	w := NormalizeWeights(map[string]float64{
		domain.MetricTVL:        0,
		domain.MetricVolume:     0,
		domain.MetricNetBuys:    0,
		domain.MetricGoodTrader: 0,
		domain.MetricHeat:       0,
	})

	if math.Abs(weightSum(w)-1) > 1e-9 {
		t.Errorf("weights sum to %v, want 1", weightSum(w))
	}
	if w[domain.MetricGoodTrader] != 0.30 {
		t.Errorf("expected default fallback, good trader = %v", w[domain.MetricGoodTrader])
	}
}
