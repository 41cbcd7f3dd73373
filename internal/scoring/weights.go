package scoring

import "dexsignal/internal/domain"

// defaultWeights are the five fixed metric weights. Caller overrides merge
// over these before normalization.
var defaultWeights = map[string]float64{
	domain.MetricTVL:        0.15,
	domain.MetricVolume:     0.15,
	domain.MetricNetBuys:    0.20,
	domain.MetricGoodTrader: 0.30,
	domain.MetricHeat:       0.20,
}

// NormalizeWeights merges a partial override map over the defaults and
// re-normalizes by the weight sum, guaranteeing the result sums to 1 even
// when the overrides do not. Negative overrides are floored to 0; unknown
// metric names are ignored. If everything is overridden to 0 the defaults
// apply unchanged.
func NormalizeWeights(overrides map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(defaultWeights))
	for name, w := range defaultWeights {
		merged[name] = w
	}
	for name, w := range overrides {
		if _, known := merged[name]; !known {
			continue
		}
		if w < 0 {
			w = 0
		}
		merged[name] = w
	}

	sum := 0.0
	for _, w := range merged {
		sum += w
	}
	if sum <= 0 {
		for name, w := range defaultWeights {
			merged[name] = w
		}
		sum = 0
		for _, w := range merged {
			sum += w
		}
	}

	for name := range merged {
		merged[name] /= sum
	}
	return merged
}
