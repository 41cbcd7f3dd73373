package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/domain"
	"dexsignal/internal/feed"
	"dexsignal/internal/graph"
	"dexsignal/internal/history"
	"dexsignal/internal/pools"
	"dexsignal/internal/storage/memory"
	"dexsignal/internal/watcher"
)

// fakeArchive records inserted batches and optionally fails.
type fakeArchive struct {
	inserted [][]domain.SwapRecord
	fail     bool
}

func (f *fakeArchive) InsertBatch(_ context.Context, records []domain.SwapRecord) error {
	if f.fail {
		return errors.New("archive down")
	}
	cp := make([]domain.SwapRecord, len(records))
	copy(cp, records)
	f.inserted = append(f.inserted, cp)
	return nil
}

func (f *fakeArchive) Close() error { return nil }

// fakeSwapsLister serves one canned page of raw swap rows.
type fakeSwapsLister struct {
	rows      []graph.SwapRow
	lastSince int64
}

func (f *fakeSwapsLister) Swaps(_ context.Context, since int64, _, skip int) ([]graph.SwapRow, error) {
	f.lastSince = since
	if skip > 0 {
		return nil, nil
	}
	return f.rows, nil
}

// idleFeed never receives events; the pipeline tests drive the history
// store directly.
type idleFeed struct{ ch chan feed.Notification }

func (f *idleFeed) SubscribeSwaps(_ context.Context, _ feed.SwapsFilter) (*feed.Subscription, error) {
	f.ch = make(chan feed.Notification)
	return &feed.Subscription{C: f.ch}, nil
}

func (f *idleFeed) Unsubscribe(_ context.Context, _ *feed.Subscription) error {
	close(f.ch)
	return nil
}

func (f *idleFeed) Close() error { return nil }

type fixedLister struct{ listings []graph.PoolListing }

func (l *fixedLister) Pools(_ context.Context, _ float64, _, skip int) ([]graph.PoolListing, error) {
	if skip > 0 {
		return nil, nil
	}
	return l.listings, nil
}

func record(t *testing.T, pool string, ts int64) domain.SwapRecord {
	t.Helper()
	amt := func(s string) domain.Amount {
		a, err := domain.ParseAmount(s)
		if err != nil {
			t.Fatalf("ParseAmount: %v", err)
		}
		return a
	}
	return domain.SwapRecord{
		Timestamp: ts,
		Pool:      pool,
		Sender:    "0xsender",
		Sold:      domain.SwapLeg{Address: "0xa", Amount: amt("50")},
		Bought:    domain.SwapLeg{Address: "0xb", Amount: amt("120")},
	}
}

func newTestRunner(t *testing.T, archive *fakeArchive, swaps SwapsLister) (*Runner, Deps) {
	t.Helper()

	snaps := memory.NewSnapshotStore()
	dir := pools.NewDirectory(&fixedLister{listings: []graph.PoolListing{{
		Address: "p1",
		Token0:  graph.TokenRef{Address: "0xa", Symbol: "A"},
		Token1:  graph.TokenRef{Address: "0xb", Symbol: "B"},
	}}}, snaps, pools.Config{}, zerolog.Nop())
	hist := history.NewStore(history.Config{})
	w := watcher.New(&idleFeed{}, dir, hist, zerolog.Nop())

	deps := Deps{
		Snapshots: snaps,
		Swaps:     swaps,
		Directory: dir,
		History:   hist,
		Watcher:   w,
	}
	if archive != nil {
		deps.Archive = archive
	}
	return New(Config{}, deps, zerolog.Nop()), deps
}

func TestArchiveStepFlushesDrainedRecords(t *testing.T) {
	archive := &fakeArchive{}
	r, deps := newTestRunner(t, archive, nil)

	deps.History.Append(record(t, "p1", 1000))
	deps.History.Append(record(t, "p1", 1001))

	r.archiveStep(context.Background())

	if len(archive.inserted) != 1 || len(archive.inserted[0]) != 2 {
		t.Fatalf("archived batches = %+v, want one batch of 2", archive.inserted)
	}
	// Nothing left for the next tick.
	r.archiveStep(context.Background())
	if len(archive.inserted) != 1 {
		t.Errorf("empty tick inserted a batch")
	}
}

// A failed insert keeps the batch and retries it on the next tick together
// with newly drained records.
func TestArchiveStepRetriesFailedBatch(t *testing.T) {
	archive := &fakeArchive{fail: true}
	r, deps := newTestRunner(t, archive, nil)
	ctx := context.Background()

	deps.History.Append(record(t, "p1", 1000))
	r.archiveStep(ctx)
	if len(archive.inserted) != 0 {
		t.Fatal("insert unexpectedly succeeded")
	}

	deps.History.Append(record(t, "p1", 1001))
	archive.fail = false
	r.archiveStep(ctx)

	if len(archive.inserted) != 1 || len(archive.inserted[0]) != 2 {
		t.Fatalf("retry batch = %+v, want both records in one batch", archive.inserted)
	}
}

func TestArchiveStepWithoutArchive(t *testing.T) {
	r, deps := newTestRunner(t, nil, nil)
	deps.History.Append(record(t, "p1", 1000))

	// Must be a no-op, not a panic.
	r.archiveStep(context.Background())
}

func TestBackfillFillsRestartGap(t *testing.T) {
	swaps := &fakeSwapsLister{rows: []graph.SwapRow{
		{Timestamp: 2000, Pool: "p1", Sender: "0xsender", Amount0: "-50", Amount1: "120"},
	}}
	r, deps := newTestRunner(t, nil, swaps)
	ctx := context.Background()

	if err := deps.Directory.Refresh(ctx); err != nil {
		t.Fatalf("directory refresh: %v", err)
	}
	deps.History.Append(record(t, "p1", 1000))

	r.backfill(ctx)

	if swaps.lastSince != 1001 {
		t.Errorf("backfill since = %d, want 1001 (latest + 1)", swaps.lastSince)
	}
	if got := deps.History.Len(); got != 2 {
		t.Errorf("history Len = %d, want 2 after backfill", got)
	}
}

// A cold start has no gap: backfill must not query the index at all.
func TestBackfillSkippedOnColdStart(t *testing.T) {
	swaps := &fakeSwapsLister{rows: []graph.SwapRow{
		{Timestamp: 2000, Pool: "p1", Sender: "0xsender", Amount0: "-50", Amount1: "120"},
	}}
	r, deps := newTestRunner(t, nil, swaps)

	r.backfill(context.Background())

	if swaps.lastSince != 0 {
		t.Errorf("cold start queried the index with since=%d", swaps.lastSince)
	}
	if got := deps.History.Len(); got != 0 {
		t.Errorf("history Len = %d, want 0", got)
	}
}

func TestRunPersistsOnShutdown(t *testing.T) {
	r, deps := newTestRunner(t, &fakeArchive{}, nil)
	deps.History.Append(record(t, "p1", time.Now().Unix()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Give the runner time to pass warm start, then shut down.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	// The final persist must be readable by a fresh store.
	restored := history.NewStore(history.Config{})
	if err := restored.Restore(context.Background(), deps.Snapshots); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := restored.Len(); got != 1 {
		t.Errorf("restored Len = %d, want 1", got)
	}
}
