package scoring

import (
	"time"

	"dexsignal/internal/domain"
)

// TraderDiffWindow bounds the good-trader diff metric. It deliberately
// differs from the aggregator's 1-hour activity feed window: the scorer
// re-filters the raw activity list itself.
const TraderDiffWindow = 30 * time.Minute

// BuildRanges scans the current token universe plus aggregated swap and
// trader data in a single pass, producing per-metric min/max bounds.
// Net-buys and good-trader diff are signed (min may be negative); the other
// metrics are non-negative lower-bounded. Ranges depend on the instantaneous
// universe and are recomputed fresh for every scoring pass.
func BuildRanges(tokens []domain.TokenSnapshot, infos []domain.TokenInfo, activity []domain.GoodTraderSwap, now time.Time) domain.ScoringRange {
	netBuys := netBuysByToken(infos)
	diffs := traderDiffByToken(activity, now)

	var r domain.ScoringRange
	for i, t := range tokens {
		net := netBuys[t.Address]
		diff := diffs[t.Address]

		if i == 0 {
			r = domain.ScoringRange{
				TVLMin: t.TVLUSD, TVLMax: t.TVLUSD,
				VolumeMin: t.VolumeUSD, VolumeMax: t.VolumeUSD,
				NetBuysMin: net, NetBuysMax: net,
				TraderDiffMin: diff, TraderDiffMax: diff,
				HeatMin: t.HeatRatio, HeatMax: t.HeatRatio,
			}
			continue
		}

		r.TVLMin, r.TVLMax = minMax(r.TVLMin, r.TVLMax, t.TVLUSD)
		r.VolumeMin, r.VolumeMax = minMax(r.VolumeMin, r.VolumeMax, t.VolumeUSD)
		r.NetBuysMin, r.NetBuysMax = minMax(r.NetBuysMin, r.NetBuysMax, net)
		r.TraderDiffMin, r.TraderDiffMax = minMax(r.TraderDiffMin, r.TraderDiffMax, diff)
		r.HeatMin, r.HeatMax = minMax(r.HeatMin, r.HeatMax, t.HeatRatio)
	}
	return r
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// netBuysByToken maps contract address to buy count minus sell count.
func netBuysByToken(infos []domain.TokenInfo) map[string]float64 {
	out := make(map[string]float64, len(infos))
	for _, info := range infos {
		out[info.Address] = float64(info.Buys - info.Sells)
	}
	return out
}

// traderDiffByToken maps contract address to allow-listed BUY minus SELL
// actions within the trailing diff window.
func traderDiffByToken(activity []domain.GoodTraderSwap, now time.Time) map[string]float64 {
	cutoff := now.Add(-TraderDiffWindow).Unix()

	out := make(map[string]float64)
	for _, act := range activity {
		if act.Timestamp < cutoff {
			continue
		}
		switch act.Action {
		case domain.ActionBuy:
			out[act.Token.Address]++
		case domain.ActionSell:
			out[act.Token.Address]--
		}
	}
	return out
}
