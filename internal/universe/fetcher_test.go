package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/graph"
	"dexsignal/internal/storage/memory"
)

// fakeLister serves canned stats per period bucket and counts calls.
type fakeLister struct {
	byPeriod map[int64][]graph.TokenHourStat
	err      error
	calls    int
}

func (f *fakeLister) TokenHourStats(_ context.Context, period int64, _ float64, first, skip int) ([]graph.TokenHourStat, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rows := f.byPeriod[period]
	if skip >= len(rows) {
		return nil, nil
	}
	end := skip + first
	if end > len(rows) {
		end = len(rows)
	}
	return rows[skip:end], nil
}

func stat(addr, name, symbol string, tvl, volume float64) graph.TokenHourStat {
	return graph.TokenHourStat{Address: addr, Name: name, Symbol: symbol, TVLUSD: tvl, VolumeUSD: volume}
}

func newTestFetcher(lister StatsLister, snaps *memory.SnapshotStore, at time.Time) *Fetcher {
	f := NewFetcher(lister, snaps, Config{}, zerolog.Nop())
	f.now = func() time.Time { return at }
	return f
}

func TestFetchCurrentUniverse(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bucket := hourBucket(at)

	// Nine tokens with distinct TVLs so the tertile split is exact:
	// 3 large, 3 medium, 3 small.
	var rows []graph.TokenHourStat
	for i := 0; i < 9; i++ {
		tvl := float64(9-i) * 1000
		rows = append(rows, stat(
			string(rune('a'+i)), "Token", "TK", tvl, float64(i+1)*100))
	}

	lister := &fakeLister{byPeriod: map[int64][]graph.TokenHourStat{bucket: rows}}
	f := newTestFetcher(lister, memory.NewSnapshotStore(), at)

	tokens, err := f.FetchCurrentUniverse(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUniverse: %v", err)
	}
	if len(tokens) != 9 {
		t.Fatalf("expected 9 tokens, got %d", len(tokens))
	}

	sizes := map[domain.SizeClass]int{}
	for _, tok := range tokens {
		sizes[tok.Size]++
	}
	if sizes[domain.SizeLarge] != 3 || sizes[domain.SizeMedium] != 3 || sizes[domain.SizeSmall] != 3 {
		t.Errorf("tertile split = %+v, want 3/3/3", sizes)
	}

	// Final ordering is heat-descending.
	for i := 1; i < len(tokens); i++ {
		if tokens[i].HeatRatio > tokens[i-1].HeatRatio {
			t.Fatalf("not heat-descending at %d: %v > %v", i, tokens[i].HeatRatio, tokens[i-1].HeatRatio)
		}
	}
}

func TestFetchExcludesStablesAndETH(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bucket := hourBucket(at)

	lister := &fakeLister{byPeriod: map[int64][]graph.TokenHourStat{bucket: {
		stat("0x1", "Wrapped Ether", "WETH", 1000, 100),
		stat("0x2", "USD Coin", "USDC", 1000, 100),
		stat("0x3", "Tether", "usdt", 1000, 100), // case-insensitive
		stat("0x4", "Keeper", "KEEP", 1000, 100),
	}}}
	f := newTestFetcher(lister, memory.NewSnapshotStore(), at)

	tokens, err := f.FetchCurrentUniverse(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUniverse: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Address != "0x4" {
		t.Fatalf("filter kept %+v, want only 0x4", tokens)
	}
}

func TestFetchHeatRatio(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bucket := hourBucket(at)

	lister := &fakeLister{byPeriod: map[int64][]graph.TokenHourStat{bucket: {
		stat("0x1", "A", "A", 2000, 500),
		stat("0x2", "B", "B", 0, 500), // zero TVL: heat must be 0, not Inf
	}}}
	f := newTestFetcher(lister, memory.NewSnapshotStore(), at)

	tokens, err := f.FetchCurrentUniverse(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUniverse: %v", err)
	}

	byAddr := map[string]domain.TokenSnapshot{}
	for _, tok := range tokens {
		byAddr[tok.Address] = tok
	}
	if got := byAddr["0x1"].HeatRatio; got != 0.25 {
		t.Errorf("heat = %v, want 0.25", got)
	}
	if got := byAddr["0x2"].HeatRatio; got != 0 {
		t.Errorf("zero-TVL heat = %v, want 0", got)
	}
}

func TestFetchCacheHit(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bucket := hourBucket(at)

	lister := &fakeLister{byPeriod: map[int64][]graph.TokenHourStat{bucket: {
		stat("0x1", "A", "A", 1000, 100),
	}}}
	snaps := memory.NewSnapshotStore()
	f := newTestFetcher(lister, snaps, at)

	ctx := context.Background()
	if _, err := f.FetchCurrentUniverse(ctx); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	upstream := lister.calls

	// Second fetch in the same bucket must be served from cache.
	if _, err := f.FetchCurrentUniverse(ctx); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if lister.calls != upstream {
		t.Errorf("cache miss: upstream calls went %d -> %d", upstream, lister.calls)
	}

	// A restarted fetcher sharing the store also hits the cache.
	f2 := newTestFetcher(&fakeLister{err: errors.New("index down")}, snaps, at)
	tokens, err := f2.FetchCurrentUniverse(ctx)
	if err != nil {
		t.Fatalf("fetch with dead index: %v", err)
	}
	if len(tokens) != 1 {
		t.Errorf("cached set = %d tokens, want 1", len(tokens))
	}
}

func TestFetchPreviousHourFallback(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bucket := hourBucket(at)

	lister := &fakeLister{byPeriod: map[int64][]graph.TokenHourStat{
		bucket - 3600: {stat("0x1", "A", "A", 1000, 100)},
	}}
	f := newTestFetcher(lister, memory.NewSnapshotStore(), at)

	tokens, err := f.FetchCurrentUniverse(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUniverse: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("fallback returned %d tokens, want 1", len(tokens))
	}
}

func TestFetchNoData(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	f := newTestFetcher(&fakeLister{}, memory.NewSnapshotStore(), at)

	_, err := f.FetchCurrentUniverse(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestHourBucket(t *testing.T) {
	at := time.Unix(7200+1799, 0)
	if got := hourBucket(at); got != 7200 {
		t.Errorf("hourBucket = %d, want 7200", got)
	}
	if got := hourBucket(time.Unix(7200, 0)); got != 7200 {
		t.Errorf("exact hour bucket = %d, want 7200", got)
	}
}
