// Package pools maintains the directory of liquidity pools qualifying by
// volume, with the derived pool-address → token-pair index the watcher uses
// to resolve raw swap events.
package pools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/graph"
	"dexsignal/internal/logging"
	"dexsignal/internal/storage"
)

// Default pagination bounds. MaxPages is a safety cap against runaway
// pagination on a misbehaving index.
const (
	DefaultPageSize = 100
	DefaultMaxPages = 10
)

// Lister is the slice of the analytics index the directory needs.
type Lister interface {
	Pools(ctx context.Context, minVolume float64, first, skip int) ([]graph.PoolListing, error)
}

// Config configures the pool directory.
type Config struct {
	// MinVolumeUSD is the qualification threshold for pools.
	MinVolumeUSD float64
	// PageSize is the index page size. Zero takes the default.
	PageSize int
	// MaxPages caps pagination. Zero takes the default.
	MaxPages int
}

// Directory holds the current pool set. Refresh replaces the set wholesale;
// the old set is discarded, never merged.
type Directory struct {
	lister Lister
	snaps  storage.SnapshotStore
	log    zerolog.Logger

	minVolume float64
	pageSize  int
	maxPages  int

	mu    sync.RWMutex
	pools []domain.Pool
	index map[string]domain.TokenPair
}

// NewDirectory creates a pool directory. snaps may be nil to disable
// persistence.
func NewDirectory(lister Lister, snaps storage.SnapshotStore, cfg Config, log zerolog.Logger) *Directory {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	return &Directory{
		lister:    lister,
		snaps:     snaps,
		log:       logging.Component(log, "pools"),
		minVolume: cfg.MinVolumeUSD,
		pageSize:  cfg.PageSize,
		maxPages:  cfg.MaxPages,
		index:     make(map[string]domain.TokenPair),
	}
}

// Refresh pages through the index and replaces the pool set and its derived
// index. A page-fetch error stops pagination but does not raise: the refresh
// keeps whatever pages were already accumulated. If nothing at all was
// accumulated the previous set is kept, so a dead index does not blank the
// watcher's subscription scope.
func (d *Directory) Refresh(ctx context.Context) error {
	var fetched []domain.Pool

	for page := 0; page < d.maxPages; page++ {
		listings, err := d.lister.Pools(ctx, d.minVolume, d.pageSize, page*d.pageSize)
		if err != nil {
			d.log.Warn().Err(err).Int("page", page).Msg("pool page fetch failed, keeping accumulated pages")
			break
		}

		for _, l := range listings {
			fetched = append(fetched, domain.Pool{
				Address:      l.Address,
				LiquidityUSD: l.LiquidityUSD,
				VolumeUSD:    l.VolumeUSD,
				Token0:       domain.PoolToken{Address: l.Token0.Address, Symbol: l.Token0.Symbol},
				Token1:       domain.PoolToken{Address: l.Token1.Address, Symbol: l.Token1.Symbol},
				CreatedAt:    l.CreatedAt,
			})
		}

		if len(listings) < d.pageSize {
			break
		}
	}

	if len(fetched) == 0 {
		d.log.Warn().Msg("pool refresh yielded no pools, keeping previous set")
		return nil
	}

	index := make(map[string]domain.TokenPair, len(fetched))
	for _, p := range fetched {
		index[p.Address] = domain.TokenPair{Token0: p.Token0, Token1: p.Token1}
	}

	d.mu.Lock()
	d.pools = fetched
	d.index = index
	d.mu.Unlock()

	d.log.Info().Int("pools", len(fetched)).Msg("pool set refreshed")

	if d.snaps != nil {
		if err := d.persist(ctx); err != nil {
			d.log.Warn().Err(err).Msg("pool snapshot persist failed")
		}
	}
	return nil
}

// CurrentPools returns a copy of the current pool set.
func (d *Directory) CurrentPools() []domain.Pool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Pool, len(d.pools))
	copy(out, d.pools)
	return out
}

// Addresses returns the current pool addresses, for subscription scoping.
func (d *Directory) Addresses() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, len(d.pools))
	for i, p := range d.pools {
		out[i] = p.Address
	}
	return out
}

// Lookup resolves a pool address to its constituent token pair.
func (d *Directory) Lookup(poolAddr string) (domain.TokenPair, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	pair, ok := d.index[poolAddr]
	return pair, ok
}

// persist writes the current pool set under the fixed pools key.
func (d *Directory) persist(ctx context.Context) error {
	d.mu.RLock()
	data, err := json.Marshal(d.pools)
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal pool snapshot: %w", err)
	}
	return d.snaps.Put(ctx, storage.KeyPools, data)
}

// Restore warms the directory from a previously persisted snapshot. A
// missing snapshot is not an error.
func (d *Directory) Restore(ctx context.Context) error {
	if d.snaps == nil {
		return nil
	}

	data, err := d.snaps.Get(ctx, storage.KeyPools)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return fmt.Errorf("load pool snapshot: %w", err)
	}

	var pools []domain.Pool
	if err := json.Unmarshal(data, &pools); err != nil {
		return fmt.Errorf("unmarshal pool snapshot: %w", err)
	}

	index := make(map[string]domain.TokenPair, len(pools))
	for _, p := range pools {
		index[p.Address] = domain.TokenPair{Token0: p.Token0, Token1: p.Token1}
	}

	d.mu.Lock()
	d.pools = pools
	d.index = index
	d.mu.Unlock()

	d.log.Info().Int("pools", len(pools)).Msg("pool set restored from snapshot")
	return nil
}
