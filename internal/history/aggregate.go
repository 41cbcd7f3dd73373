package history

import (
	"sort"
	"time"

	"dexsignal/internal/domain"
)

// TokenInfos folds the retained swap set into per-token buy/sell counts and
// net signed amount, keyed by contract address and counting all senders.
// Output is sorted by address for deterministic iteration.
func (s *Store) TokenInfos() []domain.TokenInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenInfosLocked()
}

func (s *Store) tokenInfosLocked() []domain.TokenInfo {
	infos := make(map[string]*domain.TokenInfo)

	get := func(leg domain.SwapLeg) *domain.TokenInfo {
		info, ok := infos[leg.Address]
		if !ok {
			info = &domain.TokenInfo{Address: leg.Address, Symbol: leg.Symbol}
			infos[leg.Address] = info
		}
		return info
	}

	for _, recs := range s.byPool {
		for _, r := range recs {
			sold := get(r.Sold)
			sold.Sells++
			sold.Net = sold.Net.Sub(r.Sold.Amount)

			bought := get(r.Bought)
			bought.Buys++
			bought.Net = bought.Net.Add(r.Bought.Amount)
		}
	}

	out := make([]domain.TokenInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// GoodTraderActivity folds the retained swap set into the time-filtered
// activity feed: senders on the allow-list, records within the trailing
// activity window, one SELL entry for the sold leg and one BUY entry for the
// bought leg per matched swap, sorted descending by timestamp.
func (s *Store) GoodTraderActivity(now time.Time) []domain.GoodTraderSwap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goodTraderActivityLocked(now)
}

func (s *Store) goodTraderActivityLocked(now time.Time) []domain.GoodTraderSwap {
	cutoff := now.Add(-s.activityWindow).Unix()

	var acts []domain.GoodTraderSwap
	for _, recs := range s.byPool {
		for _, r := range recs {
			if r.Timestamp < cutoff || !s.isGoodTrader(r.Sender) {
				continue
			}
			acts = append(acts,
				domain.GoodTraderSwap{
					Trader:    r.Sender,
					Timestamp: r.Timestamp,
					Action:    domain.ActionSell,
					Token:     r.Sold,
				},
				domain.GoodTraderSwap{
					Trader:    r.Sender,
					Timestamp: r.Timestamp,
					Action:    domain.ActionBuy,
					Token:     r.Bought,
				})
		}
	}

	sortActivityDesc(acts)
	return acts
}

// Summaries recomputes the per-token running totals by folding all retained
// records. The records are ground truth; summaries are never persisted
// independently.
func (s *Store) Summaries() []domain.TokenSwapSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]*domain.TokenSwapSummary)

	get := func(leg domain.SwapLeg) *domain.TokenSwapSummary {
		sum, ok := sums[leg.Address]
		if !ok {
			sum = &domain.TokenSwapSummary{Address: leg.Address, Symbol: leg.Symbol}
			sums[leg.Address] = sum
		}
		return sum
	}

	for _, recs := range s.byPool {
		for _, r := range recs {
			sold := get(r.Sold)
			sold.TotalSold = sold.TotalSold.Add(r.Sold.Amount)
			sold.SwapCount++

			bought := get(r.Bought)
			bought.TotalBought = bought.TotalBought.Add(r.Bought.Amount)
			bought.SwapCount++
		}
	}

	out := make([]domain.TokenSwapSummary, 0, len(sums))
	for _, sum := range sums {
		sum.Net = sum.TotalBought.Sub(sum.TotalSold)
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// View is a point-in-time snapshot of the aggregates scoring needs. Both
// slices are computed under one read lock so the multiple passes range
// building makes cannot observe the store mid-update.
type View struct {
	Infos    []domain.TokenInfo
	Activity []domain.GoodTraderSwap
}

// Snapshot returns a consistent read of token infos and good-trader activity.
func (s *Store) Snapshot(now time.Time) View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		Infos:    s.tokenInfosLocked(),
		Activity: s.goodTraderActivityLocked(now),
	}
}
