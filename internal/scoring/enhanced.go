package scoring

import (
	"math"
	"time"

	"dexsignal/internal/domain"
	"dexsignal/internal/marketdepth"
)

// Enhanced-layer constants. Neutral values apply wherever market-depth data
// is absent; the enhanced scorer never raises for missing data.
const (
	// depthCeilingUSD is the reference liquidity ceiling for the depth
	// sub-metric.
	depthCeilingUSD = 1_000_000.0

	// neutralRatio stands in for buy-ratio and concentration when the
	// underlying window has no data.
	neutralRatio = 0.5

	// maxVolatilityPenalty and maxLiquidityBonus cap the logarithmic
	// dampers of the risk adjustment.
	maxVolatilityPenalty = 0.5
	maxLiquidityBonus    = 0.1

	// thinLiquidityUSD and highVolatilityPct set the market-context flags.
	thinLiquidityUSD  = 10_000.0
	highVolatilityPct = 20.0
)

// ScoreEnhanced layers time-windowed momentum, liquidity health and a
// risk-adjusted composite on top of the base score. pair may be nil: every
// external-data-dependent sub-metric then takes its neutral default.
func ScoreEnhanced(token domain.TokenSnapshot, infos []domain.TokenInfo, activity []domain.GoodTraderSwap,
	ranges domain.ScoringRange, pair *marketdepth.Pair, overrides map[string]float64, now time.Time) domain.EnhancedScoreDetails {

	base := Score(token, infos, activity, ranges, overrides, now)

	momentum := smartMoneyMomentum(pair)
	liquidity := liquidityHealth(pair)
	volatility := weightedVolatility(pair)

	riskAdjusted := riskAdjust(float64(base.Total), volatility, pair.LiquidityUSD())
	final := clamp(riskAdjusted*activityFactor(pair), 0, 100)

	return domain.EnhancedScoreDetails{
		ScoreDetails:       base,
		SmartMoneyMomentum: momentum,
		Liquidity:          liquidity,
		Volatility:         volatility,
		RiskAdjusted:       riskAdjusted,
		Final:              final,
		Context: domain.MarketContext{
			HighVolatility: volatility > highVolatilityPct,
			ThinLiquidity:  pair != nil && pair.LiquidityUSD() < thinLiquidityUSD,
			HasSocials:     pair.SocialLinks() > 0,
		},
	}
}

// smartMoneyMomentum is an exponentially decayed weighted average of
// buy-ratio across the four trailing windows (5/15/30/60 minutes), the
// weight halving each step outward. Windows with no transactions contribute
// the neutral ratio.
func smartMoneyMomentum(pair *marketdepth.Pair) float64 {
	if pair == nil {
		return neutralRatio
	}

	windows := []marketdepth.TxnCount{
		pair.Txns.M5, pair.Txns.M15, pair.Txns.M30, pair.Txns.H1,
	}

	sum, weightSum := 0.0, 0.0
	weight := 1.0
	for _, w := range windows {
		sum += buyRatio(w) * weight
		weightSum += weight
		weight /= 2
	}
	return sum / weightSum
}

// buyRatio is buys/(buys+sells) for one window, neutral when empty.
func buyRatio(w marketdepth.TxnCount) float64 {
	total := w.Buys + w.Sells
	if total == 0 {
		return neutralRatio
	}
	return float64(w.Buys) / float64(total)
}

// liquidityHealth blends depth, price stability and volume concentration
// into one 0..1 health value.
func liquidityHealth(pair *marketdepth.Pair) domain.LiquidityHealth {
	if pair == nil {
		h := domain.LiquidityHealth{Depth: 0, Stability: neutralRatio, Concentration: neutralRatio}
		h.Blend = 0.4*h.Depth + 0.3*h.Stability + 0.3*h.Concentration
		return h
	}

	depth := math.Min(pair.LiquidityUSD()/depthCeilingUSD, 1)
	stability := clamp(1-math.Abs(pair.PriceChange.H24)/100, 0, 1)
	concentration := volumeConcentration(pair)

	return domain.LiquidityHealth{
		Depth:         depth,
		Stability:     stability,
		Concentration: concentration,
		Blend:         0.4*depth + 0.3*stability + 0.3*concentration,
	}
}

// volumeConcentration is the most recent hour's volume relative to the 24h
// hourly average, capped at 1, defaulting to neutral absent data.
func volumeConcentration(pair *marketdepth.Pair) float64 {
	if pair.Volume.H1 == 0 || pair.Volume.H24 == 0 {
		return neutralRatio
	}
	return math.Min(pair.Volume.H1/(pair.Volume.H24/24), 1)
}

// weightedVolatility is a weighted sum of absolute price changes over three
// trailing windows, most recent weighted heaviest.
func weightedVolatility(pair *marketdepth.Pair) float64 {
	if pair == nil {
		return 0
	}
	return 0.5*math.Abs(pair.PriceChange.M5) +
		0.3*math.Abs(pair.PriceChange.H1) +
		0.2*math.Abs(pair.PriceChange.H6)
}

// riskAdjust multiplies the composite by (1 - volatilityPenalty +
// liquidityBonus), both logarithmic dampers, clamped back into [0, 100].
func riskAdjust(composite, volatility, liquidityUSD float64) float64 {
	penalty := math.Min(maxVolatilityPenalty, math.Log1p(volatility)/10)
	bonus := math.Min(maxLiquidityBonus, math.Log10(1+liquidityUSD)/100)
	return clamp(composite*(1-penalty+bonus), 0, 100)
}

// activityFactor multiplies the risk-adjusted score by buy-pressure,
// clamped volume-acceleration and social-signal factors, each neutral (1)
// absent data.
func activityFactor(pair *marketdepth.Pair) float64 {
	if pair == nil {
		return 1
	}

	// Buy pressure over the trailing hour, mapped so the neutral ratio is
	// a no-op: factor = 0.5 + ratio.
	pressure := 0.5 + buyRatio(pair.Txns.H1)

	// Volume acceleration clamped to [0.5, 2.0] then mapped into
	// [0.9, 1.1] so a volume spike nudges rather than dominates.
	accel := 1.0
	if pair.Volume.H1 > 0 && pair.Volume.H24 > 0 {
		accel = clamp(pair.Volume.H1/(pair.Volume.H24/24), 0.5, 2.0)
		accel = 0.9 + (accel-0.5)/1.5*0.2
	}

	social := 1 + 0.01*math.Min(float64(pair.SocialLinks()), 5)

	return pressure * accel * social
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
