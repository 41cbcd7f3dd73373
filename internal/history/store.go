// Package history owns the rolling swap-history store. The watcher appends,
// the pipeline prunes and snapshots, and scoring reads, all through Store
// methods under a single lock, so an event arriving during a prune or a
// refresh can never lose updates.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dexsignal/internal/domain"
	"dexsignal/internal/storage"
)

// Default retention windows. The source system applied a 24h window during
// scheduled refresh and a 1h window during summary recomputation; they are
// kept as two named, independently configurable policies and the caller
// chooses which to run when.
const (
	DefaultRetentionRaw    = 24 * time.Hour
	DefaultRetentionRecent = 1 * time.Hour
	DefaultActivityWindow  = 1 * time.Hour
)

// Config configures the history store.
type Config struct {
	// RetentionRaw bounds record age for PruneRaw (scheduled refresh).
	RetentionRaw time.Duration
	// RetentionRecent bounds record age for PruneRecent (summary recompute).
	RetentionRecent time.Duration
	// ActivityWindow bounds the good-trader activity feed.
	ActivityWindow time.Duration
	// GoodTraders is the allow-list of trader addresses (case-insensitive).
	GoodTraders []string
}

// Store is the owned aggregation store for the rolling swap history.
type Store struct {
	mu     sync.RWMutex
	byPool map[string][]domain.SwapRecord

	// pendingArchive accumulates appended records between archive flushes.
	pendingArchive []domain.SwapRecord

	retentionRaw    time.Duration
	retentionRecent time.Duration
	activityWindow  time.Duration
	goodTraders     map[string]struct{}
}

// NewStore creates a history store. Zero config fields take defaults.
func NewStore(cfg Config) *Store {
	if cfg.RetentionRaw == 0 {
		cfg.RetentionRaw = DefaultRetentionRaw
	}
	if cfg.RetentionRecent == 0 {
		cfg.RetentionRecent = DefaultRetentionRecent
	}
	if cfg.ActivityWindow == 0 {
		cfg.ActivityWindow = DefaultActivityWindow
	}

	traders := make(map[string]struct{}, len(cfg.GoodTraders))
	for _, t := range cfg.GoodTraders {
		traders[strings.ToLower(t)] = struct{}{}
	}

	return &Store{
		byPool:          make(map[string][]domain.SwapRecord),
		retentionRaw:    cfg.RetentionRaw,
		retentionRecent: cfg.RetentionRecent,
		activityWindow:  cfg.ActivityWindow,
		goodTraders:     traders,
	}
}

// Append adds one swap record to its pool's rolling history, creating the
// history list lazily on first swap.
func (s *Store) Append(rec domain.SwapRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byPool[rec.Pool] = append(s.byPool[rec.Pool], rec)
	s.pendingArchive = append(s.pendingArchive, rec)
}

// Len returns the total number of retained records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, recs := range s.byPool {
		n += len(recs)
	}
	return n
}

// LatestTimestamp returns the newest retained record timestamp, 0 when the
// store is empty. Used to bound backfill after a restart.
func (s *Store) LatestTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	for _, recs := range s.byPool {
		for _, r := range recs {
			if r.Timestamp > latest {
				latest = r.Timestamp
			}
		}
	}
	return latest
}

// PruneRaw drops records older than the raw retention window. Invoked by the
// scheduled refresh.
func (s *Store) PruneRaw(now time.Time) int {
	return s.prune(now.Add(-s.retentionRaw).Unix())
}

// PruneRecent drops records older than the recent retention window. Invoked
// before summary recomputation.
func (s *Store) PruneRecent(now time.Time) int {
	return s.prune(now.Add(-s.retentionRecent).Unix())
}

// prune drops records with Timestamp < cutoff, returning the drop count.
func (s *Store) prune(cutoff int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for pool, recs := range s.byPool {
		kept := recs[:0]
		for _, r := range recs {
			if r.Timestamp >= cutoff {
				kept = append(kept, r)
			} else {
				dropped++
			}
		}
		if len(kept) == 0 {
			delete(s.byPool, pool)
		} else {
			s.byPool[pool] = kept
		}
	}
	return dropped
}

// DrainArchive returns and clears the records accumulated since the last
// drain, for the archive flush.
func (s *Store) DrainArchive() []domain.SwapRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.pendingArchive
	s.pendingArchive = nil
	return out
}

// snapshotBlob is the persisted snapshot shape.
type snapshotBlob struct {
	Pools map[string][]domain.SwapRecord `json:"pools"`
}

// Persist writes the retained history to the snapshot store under the fixed
// swap-set key.
func (s *Store) Persist(ctx context.Context, snaps storage.SnapshotStore) error {
	s.mu.RLock()
	blob := snapshotBlob{Pools: make(map[string][]domain.SwapRecord, len(s.byPool))}
	for pool, recs := range s.byPool {
		cp := make([]domain.SwapRecord, len(recs))
		copy(cp, recs)
		blob.Pools[pool] = cp
	}
	s.mu.RUnlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal swap snapshot: %w", err)
	}
	if err := snaps.Put(ctx, storage.KeySwaps, data); err != nil {
		return fmt.Errorf("persist swap snapshot: %w", err)
	}
	return nil
}

// Restore warms the store from a previously persisted snapshot. A missing
// snapshot is not an error.
func (s *Store) Restore(ctx context.Context, snaps storage.SnapshotStore) error {
	data, err := snaps.Get(ctx, storage.KeySwaps)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return fmt.Errorf("load swap snapshot: %w", err)
	}

	var blob snapshotBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("unmarshal swap snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for pool, recs := range blob.Pools {
		s.byPool[pool] = append(s.byPool[pool], recs...)
	}
	return nil
}

// isGoodTrader reports whether the sender is on the allow-list.
func (s *Store) isGoodTrader(sender string) bool {
	_, ok := s.goodTraders[strings.ToLower(sender)]
	return ok
}

// sortActivityDesc orders activity entries by timestamp descending, trader
// ascending on ties for deterministic output.
func sortActivityDesc(acts []domain.GoodTraderSwap) {
	sort.Slice(acts, func(i, j int) bool {
		if acts[i].Timestamp != acts[j].Timestamp {
			return acts[i].Timestamp > acts[j].Timestamp
		}
		return acts[i].Trader < acts[j].Trader
	})
}
