package scoring

import (
	"testing"
	"time"

	"dexsignal/internal/domain"
)

func snap(addr string, tvl, volume, heat float64) domain.TokenSnapshot {
	return domain.TokenSnapshot{Address: addr, TVLUSD: tvl, VolumeUSD: volume, HeatRatio: heat}
}

func TestBuildRanges(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tokens := []domain.TokenSnapshot{
		snap("0xaaa", 1000, 500, 0.5),
		snap("0xbbb", 9000, 100, 0.011),
		snap("0xccc", 3000, 2500, 0.83),
	}
	infos := []domain.TokenInfo{
		{Address: "0xaaa", Buys: 10, Sells: 2},  // net +8
		{Address: "0xbbb", Buys: 1, Sells: 12},  // net -11
	}
	activity := []domain.GoodTraderSwap{
		{Trader: "t1", Timestamp: now.Unix() - 60, Action: domain.ActionBuy, Token: domain.SwapLeg{Address: "0xccc"}},
		{Trader: "t1", Timestamp: now.Unix() - 120, Action: domain.ActionBuy, Token: domain.SwapLeg{Address: "0xccc"}},
		{Trader: "t2", Timestamp: now.Unix() - 90, Action: domain.ActionSell, Token: domain.SwapLeg{Address: "0xaaa"}},
		// Outside the 30-minute diff window: must not count.
		{Trader: "t2", Timestamp: now.Add(-45 * time.Minute).Unix(), Action: domain.ActionSell, Token: domain.SwapLeg{Address: "0xccc"}},
	}

	r := BuildRanges(tokens, infos, activity, now)

	if r.TVLMin != 1000 || r.TVLMax != 9000 {
		t.Errorf("TVL range [%v, %v], want [1000, 9000]", r.TVLMin, r.TVLMax)
	}
	if r.VolumeMin != 100 || r.VolumeMax != 2500 {
		t.Errorf("volume range [%v, %v], want [100, 2500]", r.VolumeMin, r.VolumeMax)
	}
	if r.NetBuysMin != -11 || r.NetBuysMax != 8 {
		t.Errorf("net buys range [%v, %v], want [-11, 8]", r.NetBuysMin, r.NetBuysMax)
	}
	if r.TraderDiffMin != -1 || r.TraderDiffMax != 2 {
		t.Errorf("trader diff range [%v, %v], want [-1, 2]", r.TraderDiffMin, r.TraderDiffMax)
	}
	if r.HeatMin != 0.011 || r.HeatMax != 0.83 {
		t.Errorf("heat range [%v, %v], want [0.011, 0.83]", r.HeatMin, r.HeatMax)
	}
}

// Tokens with no swap data contribute 0 to the signed ranges, so positive
// activity still produces a zero-anchored minimum.
func TestBuildRangesMissingTokensAnchorZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tokens := []domain.TokenSnapshot{
		snap("0xaaa", 100, 10, 0.1),
		snap("0xbbb", 200, 20, 0.1),
	}
	infos := []domain.TokenInfo{{Address: "0xaaa", Buys: 5}}

	r := BuildRanges(tokens, infos, nil, now)
	if r.NetBuysMin != 0 || r.NetBuysMax != 5 {
		t.Errorf("net buys range [%v, %v], want [0, 5]", r.NetBuysMin, r.NetBuysMax)
	}
}

func TestBuildRangesEmptyUniverse(t *testing.T) {
	r := BuildRanges(nil, nil, nil, time.Now())
	if r != (domain.ScoringRange{}) {
		t.Errorf("empty universe produced non-zero ranges: %+v", r)
	}
}
