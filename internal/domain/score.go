package domain

// Metric names used for weights, ranges and explanations.
const (
	MetricTVL        = "tvl"
	MetricVolume     = "volume"
	MetricNetBuys    = "netBuys"
	MetricGoodTrader = "goodTrader"
	MetricHeat       = "heat"
)

// ScoringRange holds per-metric min/max observed across the current token
// universe at scoring time. Recomputed fresh for every scoring pass; never
// cached, since it depends on the instantaneous universe.
type ScoringRange struct {
	TVLMin, TVLMax               float64
	VolumeMin, VolumeMax         float64
	NetBuysMin, NetBuysMax       float64 // signed
	TraderDiffMin, TraderDiffMax float64 // signed
	HeatMin, HeatMax             float64
}

// MetricScore is one normalized sub-score with its weighted contribution
// and a human-readable explanation.
type MetricScore struct {
	Score        float64 `json:"score"`  // 0..10
	Weight       float64 `json:"weight"` // normalized, sums to 1 across metrics
	Contribution float64 `json:"contribution"`
	Explanation  string  `json:"explanation"`
}

// ScoreDetails is the base scoring output for one token: five sub-scores
// and the 0-100 weighted composite.
type ScoreDetails struct {
	Address string                 `json:"address"`
	Symbol  string                 `json:"symbol"`
	Metrics map[string]MetricScore `json:"metrics"`
	Total   int                    `json:"total"` // 0..100
}

// LiquidityHealth breaks the liquidity-health blend into its sub-metrics.
// All values are in [0,1]; neutral defaults apply when market-depth data
// is absent.
type LiquidityHealth struct {
	Depth         float64 `json:"depth"`
	Stability     float64 `json:"stability"`
	Concentration float64 `json:"concentration"`
	Blend         float64 `json:"blend"`
}

// MarketContext carries coarse flags derived from market-depth data.
type MarketContext struct {
	HighVolatility bool `json:"highVolatility"`
	ThinLiquidity  bool `json:"thinLiquidity"`
	HasSocials     bool `json:"hasSocials"`
}

// EnhancedScoreDetails layers time-windowed momentum, liquidity health and a
// risk-adjusted composite on top of the base details. Selected when per-pair
// market-depth data was supplied; every external-data-dependent field holds
// a neutral default when it was not.
type EnhancedScoreDetails struct {
	ScoreDetails

	SmartMoneyMomentum float64         `json:"smartMoneyMomentum"` // 0..1
	Liquidity          LiquidityHealth `json:"liquidity"`
	Volatility         float64         `json:"volatility"`
	RiskAdjusted       float64         `json:"riskAdjusted"` // 0..100
	Final              float64         `json:"final"`        // risk-adjusted after activity factors
	Context            MarketContext   `json:"context"`
}
