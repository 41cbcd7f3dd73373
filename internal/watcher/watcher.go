// Package watcher subscribes the live swap-event feed to the current pool
// directory and feeds decoded, direction-normalized swap records into the
// history store.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/feed"
	"dexsignal/internal/graph"
	"dexsignal/internal/history"
	"dexsignal/internal/logging"
	"dexsignal/internal/pools"
)

// Watcher is a two-state machine: Idle (no subscription) and Watching (one
// live subscription scoped to the directory's current pool addresses).
// Refresh unconditionally tears down and re-establishes the subscription
// against the latest pool set; transport errors below the feed client never
// tear down the watcher.
type Watcher struct {
	feed feed.Client
	dir  *pools.Directory
	hist *history.Store
	log  zerolog.Logger

	mu   sync.Mutex
	sub  *feed.Subscription
	done chan struct{} // closed when the consumer goroutine exits

	// now supplies timestamps for entries the feed delivered without one.
	now func() time.Time
}

// New creates a watcher in the Idle state.
func New(feedClient feed.Client, dir *pools.Directory, hist *history.Store, log zerolog.Logger) *Watcher {
	return &Watcher{
		feed: feedClient,
		dir:  dir,
		hist: hist,
		log:  logging.Component(log, "watcher"),
		now:  time.Now,
	}
}

// Start subscribes to the current pool set and begins consuming events.
// Starting an already-watching watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub != nil {
		return nil
	}
	return w.startLocked(ctx)
}

func (w *Watcher) startLocked(ctx context.Context) error {
	addrs := w.dir.Addresses()
	if len(addrs) == 0 {
		w.log.Warn().Msg("no pools to watch, staying idle")
		return nil
	}

	sub, err := w.feed.SubscribeSwaps(ctx, feed.SwapsFilter{Pools: addrs})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	w.sub = sub
	w.done = done

	go w.consume(sub, done)

	w.log.Info().Int("pools", len(addrs)).Int64("sub", sub.ID()).Msg("watching swap events")
	return nil
}

// Refresh tears down any current subscription and re-establishes it against
// the latest pool directory. Called on the hourly refresh cadence after the
// directory has been refreshed.
func (w *Watcher) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked(ctx)
	return w.startLocked(ctx)
}

// Stop unsubscribes and returns the watcher to Idle.
func (w *Watcher) Stop(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(ctx)
}

func (w *Watcher) stopLocked(ctx context.Context) {
	if w.sub == nil {
		return
	}

	if err := w.feed.Unsubscribe(ctx, w.sub); err != nil {
		// Unsubscribe failures are transport noise; the consumer exits
		// on the subscription's done signal either way.
		w.log.Warn().Err(err).Msg("unsubscribe failed")
	}
	<-w.done

	w.sub = nil
	w.done = nil
}

// consume drains one subscription until it is torn down, then flushes what
// is still buffered before exiting. Runs on its own goroutine so event
// handling never blocks the refresh scheduler.
func (w *Watcher) consume(sub *feed.Subscription, done chan struct{}) {
	defer close(done)

	for {
		select {
		case notif, ok := <-sub.C:
			if !ok {
				return
			}
			for _, entry := range notif.Entries {
				w.handleEntry(entry)
			}
		case <-sub.Done():
			for {
				select {
				case notif, ok := <-sub.C:
					if !ok {
						return
					}
					for _, entry := range notif.Entries {
						w.handleEntry(entry)
					}
				default:
					return
				}
			}
		}
	}
}

// handleEntry decodes one raw entry into a swap record and appends it to the
// rolling history. Undecodable entries and events for pools missing from the
// directory index are logged and skipped; both are non-fatal.
func (w *Watcher) handleEntry(entry feed.SwapEntry) {
	pair, ok := w.dir.Lookup(entry.Pool)
	if !ok {
		w.log.Warn().Str("pool", entry.Pool).Msg("swap event for unknown pool, skipping")
		return
	}

	rec, ok := normalize(entry, pair)
	if !ok {
		w.log.Debug().Str("pool", entry.Pool).Msg("swap event with ambiguous leg signs, skipping")
		return
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = w.now().Unix()
	}

	w.hist.Append(rec)
}

// Backfill replays raw swap rows from the analytics index through the same
// decode path as live events. Rows for unknown pools and malformed rows are
// skipped. Returns the number of records appended.
func (w *Watcher) Backfill(rows []graph.SwapRow) int {
	appended := 0
	for _, row := range rows {
		pair, ok := w.dir.Lookup(row.Pool)
		if !ok {
			continue
		}
		rec, ok := normalize(feed.SwapEntry{
			Pool:      row.Pool,
			Sender:    row.Sender,
			Recipient: row.Recipient,
			Amount0:   row.Amount0,
			Amount1:   row.Amount1,
			Timestamp: row.Timestamp,
		}, pair)
		if !ok {
			continue
		}
		w.hist.Append(rec)
		appended++
	}
	return appended
}

// normalize turns the raw signed two-leg amount pair into a directional swap
// record by sign inspection: the negative leg was sold (magnitude negated to
// a positive amount), the other leg bought.
func normalize(entry feed.SwapEntry, pair domain.TokenPair) (domain.SwapRecord, bool) {
	amount0, err := domain.ParseAmount(entry.Amount0)
	if err != nil {
		return domain.SwapRecord{}, false
	}
	amount1, err := domain.ParseAmount(entry.Amount1)
	if err != nil {
		return domain.SwapRecord{}, false
	}

	var sold, bought domain.SwapLeg
	switch {
	case amount0.Sign() < 0 && amount1.Sign() >= 0:
		sold = leg(pair.Token0, amount0.Neg())
		bought = leg(pair.Token1, amount1)
	case amount1.Sign() < 0 && amount0.Sign() >= 0:
		sold = leg(pair.Token1, amount1.Neg())
		bought = leg(pair.Token0, amount0)
	default:
		// Both legs same sign: not a well-formed swap.
		return domain.SwapRecord{}, false
	}

	return domain.SwapRecord{
		Timestamp: entry.Timestamp,
		Pool:      entry.Pool,
		Sender:    entry.Sender,
		Recipient: entry.Recipient,
		Sold:      sold,
		Bought:    bought,
	}, true
}

func leg(t domain.PoolToken, amount domain.Amount) domain.SwapLeg {
	return domain.SwapLeg{Address: t.Address, Symbol: t.Symbol, Amount: amount}
}
