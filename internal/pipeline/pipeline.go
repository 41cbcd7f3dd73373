// Package pipeline supervises the long-running ingestion loop: pool-set
// refresh, live swap watching, history pruning, persistence and archival.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/graph"
	"dexsignal/internal/history"
	"dexsignal/internal/logging"
	"dexsignal/internal/pools"
	"dexsignal/internal/storage"
	"dexsignal/internal/watcher"
)

// maxArchiveBacklog bounds records held across failed archive flushes.
// Oldest records are dropped beyond it.
const maxArchiveBacklog = 100_000

type Config struct {
	// RefreshInterval drives pool-set refresh, raw pruning and persistence.
	RefreshInterval time.Duration
	// SummaryInterval drives recent pruning and summary recomputation.
	SummaryInterval time.Duration
	// ArchiveInterval drives archive flushes. Ignored without an archive.
	ArchiveInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Hour,
		SummaryInterval: 5 * time.Minute,
		ArchiveInterval: time.Minute,
	}
}

// SwapsLister is the slice of the analytics index used for gap backfill.
type SwapsLister interface {
	Swaps(ctx context.Context, since int64, first, skip int) ([]graph.SwapRow, error)
}

// Deps are the wired components the runner drives. Archive and Swaps may be
// nil; backfill is skipped without a lister.
type Deps struct {
	Snapshots storage.SnapshotStore
	Archive   storage.SwapArchive
	Swaps     SwapsLister
	Directory *pools.Directory
	History   *history.Store
	Watcher   *watcher.Watcher
}

// Runner owns the scheduling of the ingestion pipeline.
type Runner struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	// backlog holds drained records whose archive insert failed.
	backlog []domain.SwapRecord
}

func New(cfg Config, deps Deps, log zerolog.Logger) *Runner {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if cfg.SummaryInterval <= 0 {
		cfg.SummaryInterval = DefaultConfig().SummaryInterval
	}
	if cfg.ArchiveInterval <= 0 {
		cfg.ArchiveInterval = DefaultConfig().ArchiveInterval
	}
	return &Runner{cfg: cfg, deps: deps, log: logging.Component(log, "pipeline")}
}

// Run drives the pipeline until ctx is cancelled. It warm-starts from the
// snapshot store, performs one immediate refresh, then runs the periodic
// loop. On shutdown it stops the watcher, flushes the archive and persists
// the history one last time.
func (r *Runner) Run(ctx context.Context) error {
	r.warmStart(ctx)

	if err := r.deps.Directory.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("initial pool refresh failed, continuing with restored set")
	}
	r.backfill(ctx)
	if err := r.deps.Watcher.Start(ctx); err != nil {
		r.log.Warn().Err(err).Msg("watcher start failed, will retry on next refresh")
	}

	refresh := time.NewTicker(r.cfg.RefreshInterval)
	defer refresh.Stop()
	summary := time.NewTicker(r.cfg.SummaryInterval)
	defer summary.Stop()
	archive := time.NewTicker(r.cfg.ArchiveInterval)
	defer archive.Stop()

	r.log.Info().
		Dur("refresh_interval", r.cfg.RefreshInterval).
		Dur("summary_interval", r.cfg.SummaryInterval).
		Msg("pipeline started")

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-refresh.C:
			r.refreshStep(ctx)
		case <-summary.C:
			r.summaryStep()
		case <-archive.C:
			r.archiveStep(ctx)
		}
	}
}

func (r *Runner) warmStart(ctx context.Context) {
	if err := r.deps.Directory.Restore(ctx); err != nil {
		r.log.Warn().Err(err).Msg("pool set restore failed, starting empty")
	}
	if err := r.deps.History.Restore(ctx, r.deps.Snapshots); err != nil {
		r.log.Warn().Err(err).Msg("history restore failed, starting empty")
	}
}

// backfillPageSize bounds one index page during gap backfill.
const backfillPageSize = 1000

// backfill fills the ingestion gap between the restored history's newest
// record and now by replaying index swap rows through the watcher's decode
// path. Skipped on a cold start: there is no gap to fill.
func (r *Runner) backfill(ctx context.Context) {
	if r.deps.Swaps == nil {
		return
	}
	since := r.deps.History.LatestTimestamp()
	if since == 0 {
		return
	}

	total := 0
	for page := 0; ; page++ {
		// since+1: the newest retained second is already ingested.
		rows, err := r.deps.Swaps.Swaps(ctx, since+1, backfillPageSize, page*backfillPageSize)
		if err != nil {
			r.log.Warn().Err(err).Int("page", page).Msg("backfill page fetch failed, keeping accumulated rows")
			break
		}
		total += r.deps.Watcher.Backfill(rows)
		if len(rows) < backfillPageSize {
			break
		}
	}
	if total > 0 {
		r.log.Info().Int64("since", since).Int("records", total).Msg("backfilled swap gap")
	}
}

// refreshStep replaces the pool set, resubscribes the watcher to it, prunes
// raw history and persists the survivors.
func (r *Runner) refreshStep(ctx context.Context) {
	now := time.Now()

	if err := r.deps.Directory.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("pool refresh failed, keeping current set")
	}
	if err := r.deps.Watcher.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("watcher refresh failed")
	}

	pruned := r.deps.History.PruneRaw(now)
	if err := r.deps.History.Persist(ctx, r.deps.Snapshots); err != nil {
		r.log.Error().Err(err).Msg("history persist failed")
	}

	r.log.Info().
		Int("pools", len(r.deps.Directory.Addresses())).
		Int("pruned", pruned).
		Int("records", r.deps.History.Len()).
		Msg("refresh complete")
}

// summaryStep tightens the recent window and recomputes per-token summaries.
func (r *Runner) summaryStep() {
	now := time.Now()
	pruned := r.deps.History.PruneRecent(now)
	summaries := r.deps.History.Summaries()

	r.log.Info().
		Int("pruned", pruned).
		Int("tokens", len(summaries)).
		Msg("summary recomputed")
}

// archiveStep moves appended records into the long-term archive. Failed
// batches are retried on the next tick, bounded by maxArchiveBacklog.
func (r *Runner) archiveStep(ctx context.Context) {
	if r.deps.Archive == nil {
		return
	}

	r.backlog = append(r.backlog, r.deps.History.DrainArchive()...)
	if len(r.backlog) == 0 {
		return
	}
	if over := len(r.backlog) - maxArchiveBacklog; over > 0 {
		r.log.Warn().Int("dropped", over).Msg("archive backlog overflow")
		r.backlog = r.backlog[over:]
	}

	if err := r.deps.Archive.InsertBatch(ctx, r.backlog); err != nil {
		r.log.Error().Err(err).Int("records", len(r.backlog)).Msg("archive insert failed, will retry")
		return
	}
	r.log.Debug().Int("records", len(r.backlog)).Msg("archived swap records")
	r.backlog = nil
}

func (r *Runner) shutdown() {
	// Use a fresh context: the run context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.deps.Watcher.Stop(ctx)
	r.archiveStep(ctx)
	if err := r.deps.History.Persist(ctx, r.deps.Snapshots); err != nil {
		r.log.Error().Err(err).Msg("final history persist failed")
	}
	r.log.Info().Msg("pipeline stopped")
}
