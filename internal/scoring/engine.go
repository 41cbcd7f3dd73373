// Package scoring converts raw per-token statistics plus optional external
// market-depth data into a single comparable 0-100 score per token.
package scoring

import (
	"fmt"
	"math"
	"time"

	"dexsignal/internal/domain"
)

// Score combines the token's universe metrics, aggregated swap statistics
// and good-trader activity into the weighted composite score. Inputs should
// come from one consistent snapshot; ranges must have been built from the
// same snapshot.
func Score(token domain.TokenSnapshot, infos []domain.TokenInfo, activity []domain.GoodTraderSwap,
	ranges domain.ScoringRange, overrides map[string]float64, now time.Time) domain.ScoreDetails {

	weights := NormalizeWeights(overrides)

	net := netBuysByToken(infos)[token.Address]
	diff := traderDiffByToken(activity, now)[token.Address]

	metrics := map[string]domain.MetricScore{
		domain.MetricTVL: metric(
			Scale(token.TVLUSD, ranges.TVLMin, ranges.TVLMax, false),
			weights[domain.MetricTVL],
			fmt.Sprintf("TVL $%.0f in universe range [$%.0f, $%.0f]", token.TVLUSD, ranges.TVLMin, ranges.TVLMax),
		),
		domain.MetricVolume: metric(
			Scale(token.VolumeUSD, ranges.VolumeMin, ranges.VolumeMax, false),
			weights[domain.MetricVolume],
			fmt.Sprintf("volume $%.0f in universe range [$%.0f, $%.0f]", token.VolumeUSD, ranges.VolumeMin, ranges.VolumeMax),
		),
		domain.MetricNetBuys: metric(
			Scale(net, ranges.NetBuysMin, ranges.NetBuysMax, false),
			weights[domain.MetricNetBuys],
			fmt.Sprintf("net buys %+.0f in universe range [%+.0f, %+.0f]", net, ranges.NetBuysMin, ranges.NetBuysMax),
		),
		domain.MetricGoodTrader: metric(
			Scale(diff, ranges.TraderDiffMin, ranges.TraderDiffMax, false),
			weights[domain.MetricGoodTrader],
			fmt.Sprintf("good-trader diff %+.0f over trailing %s", diff, TraderDiffWindow),
		),
		// Heat is the only inverted metric: lower trading intensity
		// relative to liquidity reads as healthier.
		domain.MetricHeat: metric(
			Scale(token.HeatRatio, ranges.HeatMin, ranges.HeatMax, true),
			weights[domain.MetricHeat],
			fmt.Sprintf("heat ratio %.4f in universe range [%.4f, %.4f], lower is better", token.HeatRatio, ranges.HeatMin, ranges.HeatMax),
		),
	}

	weighted := 0.0
	for _, m := range metrics {
		weighted += m.Contribution
	}

	return domain.ScoreDetails{
		Address: token.Address,
		Symbol:  token.Symbol,
		Metrics: metrics,
		Total:   int(math.Round(weighted * 10)),
	}
}

func metric(score, weight float64, explanation string) domain.MetricScore {
	return domain.MetricScore{
		Score:        score,
		Weight:       weight,
		Contribution: score * weight,
		Explanation:  explanation,
	}
}
