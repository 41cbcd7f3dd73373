// Package universe acquires the hourly snapshot of candidate tokens from the
// analytics index, with hour-bucket caching and previous-hour fallback.
package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/graph"
	"dexsignal/internal/logging"
	"dexsignal/internal/storage"
)

// ErrNoData is returned when neither the current nor the immediately
// preceding hour bucket yields any tokens. This is the pipeline's only hard
// failure path.
var ErrNoData = errors.New("no universe data for current or previous hour bucket")

// Default pagination bounds.
const (
	DefaultPageSize = 100
	DefaultMaxPages = 10
)

// hourBucket floors a time to the start of its hour, the cache partition key.
func hourBucket(t time.Time) int64 {
	return t.Unix() - t.Unix()%3600
}

// bucketKey is the snapshot-store key for one hour bucket.
func bucketKey(bucket int64) string {
	return fmt.Sprintf("universe/%d", bucket)
}

// StatsLister is the slice of the analytics index the fetcher needs.
type StatsLister interface {
	TokenHourStats(ctx context.Context, period int64, minVolume float64, first, skip int) ([]graph.TokenHourStat, error)
}

// Config configures the universe fetcher.
type Config struct {
	// MinVolumeUSD filters the hourly listing upstream.
	MinVolumeUSD float64
	// PageSize is the index page size. Zero takes the default.
	PageSize int
	// MaxPages caps pagination. Zero takes the default.
	MaxPages int
}

// Fetcher acquires the current token universe with time-bucketed caching.
type Fetcher struct {
	lister StatsLister
	snaps  storage.SnapshotStore
	log    zerolog.Logger

	minVolume float64
	pageSize  int
	maxPages  int

	// now is injectable for tests.
	now func() time.Time
}

// NewFetcher creates a universe fetcher. snaps may be nil to disable caching.
func NewFetcher(lister StatsLister, snaps storage.SnapshotStore, cfg Config, log zerolog.Logger) *Fetcher {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	return &Fetcher{
		lister:    lister,
		snaps:     snaps,
		log:       logging.Component(log, "universe"),
		minVolume: cfg.MinVolumeUSD,
		pageSize:  cfg.PageSize,
		maxPages:  cfg.MaxPages,
		now:       time.Now,
	}
}

// FetchCurrentUniverse returns the token snapshot set for the current hour
// bucket. A bucket's data is immutable once fetched, so a cache hit is
// returned unchanged without TTL checks. If the current bucket yields
// nothing upstream, the immediately preceding bucket is tried once; if that
// also yields nothing, ErrNoData is returned.
func (f *Fetcher) FetchCurrentUniverse(ctx context.Context) ([]domain.TokenSnapshot, error) {
	bucket := hourBucket(f.now())

	tokens, err := f.fetchBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if len(tokens) > 0 {
		return tokens, nil
	}

	f.log.Warn().Int64("bucket", bucket).Msg("current hour bucket empty, falling back to previous hour")

	tokens, err = f.fetchBucket(ctx, bucket-3600)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrNoData
	}
	return tokens, nil
}

// fetchBucket returns one bucket's snapshot set, from cache when present.
func (f *Fetcher) fetchBucket(ctx context.Context, bucket int64) ([]domain.TokenSnapshot, error) {
	if cached, ok := f.cached(ctx, bucket); ok {
		return cached, nil
	}

	stats := f.pageStats(ctx, bucket)
	tokens := buildSnapshots(stats)
	if len(tokens) == 0 {
		return nil, nil
	}

	f.cache(ctx, bucket, tokens)
	return tokens, nil
}

// pageStats pages through the hourly listing. A page error stops pagination
// and keeps the accumulated rows.
func (f *Fetcher) pageStats(ctx context.Context, bucket int64) []graph.TokenHourStat {
	var stats []graph.TokenHourStat

	for page := 0; page < f.maxPages; page++ {
		rows, err := f.lister.TokenHourStats(ctx, bucket, f.minVolume, f.pageSize, page*f.pageSize)
		if err != nil {
			f.log.Warn().Err(err).Int("page", page).Msg("universe page fetch failed, keeping accumulated rows")
			break
		}
		stats = append(stats, rows...)
		if len(rows) < f.pageSize {
			break
		}
	}
	return stats
}

// buildSnapshots filters out stablecoin/ETH tokens, assigns size buckets by
// TVL tertile, computes heat ratios and produces the final heat-descending
// ordering.
func buildSnapshots(stats []graph.TokenHourStat) []domain.TokenSnapshot {
	tokens := make([]domain.TokenSnapshot, 0, len(stats))
	for _, s := range stats {
		if isExcluded(s.Name) || isExcluded(s.Symbol) {
			continue
		}
		heat := 0.0
		if s.TVLUSD > 0 {
			heat = s.VolumeUSD / s.TVLUSD
		}
		tokens = append(tokens, domain.TokenSnapshot{
			Address:   s.Address,
			Name:      s.Name,
			Symbol:    s.Symbol,
			PriceUSD:  s.PriceUSD,
			TVLUSD:    s.TVLUSD,
			VolumeUSD: s.VolumeUSD,
			HeatRatio: heat,
			CreatedAt: s.CreatedAt,
		})
	}

	// Size buckets partition the TVL-descending order into tertiles:
	// first floor(N/3) large, next floor(N/3) medium, remainder small.
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].TVLUSD > tokens[j].TVLUSD })
	third := len(tokens) / 3
	for i := range tokens {
		switch {
		case i < third:
			tokens[i].Size = domain.SizeLarge
		case i < 2*third:
			tokens[i].Size = domain.SizeMedium
		default:
			tokens[i].Size = domain.SizeSmall
		}
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].HeatRatio > tokens[j].HeatRatio })
	return tokens
}

// isExcluded reports whether a token name or symbol carries a stablecoin or
// ETH marker (case-insensitive substring match).
func isExcluded(s string) bool {
	u := strings.ToUpper(s)
	return strings.Contains(u, "USD") || strings.Contains(u, "ETH")
}

// cached returns the bucket's snapshot set from the cache, if present and
// non-empty.
func (f *Fetcher) cached(ctx context.Context, bucket int64) ([]domain.TokenSnapshot, bool) {
	if f.snaps == nil {
		return nil, false
	}

	data, err := f.snaps.Get(ctx, bucketKey(bucket))
	if err != nil {
		if err != storage.ErrNotFound {
			f.log.Warn().Err(err).Int64("bucket", bucket).Msg("universe cache read failed")
		}
		return nil, false
	}

	var tokens []domain.TokenSnapshot
	if err := json.Unmarshal(data, &tokens); err != nil {
		f.log.Warn().Err(err).Int64("bucket", bucket).Msg("universe cache entry malformed")
		return nil, false
	}
	if len(tokens) == 0 {
		return nil, false
	}
	return tokens, true
}

// cache persists the final ordering under the bucket key. Previously written
// buckets are never mutated; only an unfetched bucket reaches this point.
func (f *Fetcher) cache(ctx context.Context, bucket int64, tokens []domain.TokenSnapshot) {
	if f.snaps == nil {
		return
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		f.log.Warn().Err(err).Int64("bucket", bucket).Msg("universe cache marshal failed")
		return
	}
	if err := f.snaps.Put(ctx, bucketKey(bucket), data); err != nil {
		f.log.Warn().Err(err).Int64("bucket", bucket).Msg("universe cache write failed")
	}
}
