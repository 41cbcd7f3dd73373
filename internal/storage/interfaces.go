package storage

import (
	"context"

	"dexsignal/internal/domain"
)

// Snapshot keys used by the pipeline. Universe snapshots derive their key
// from the hour bucket ("universe/<unix>"); the pool and swap sets use
// fixed logical names.
const (
	KeyPools = "pools"
	KeySwaps = "swaps"
)

// SnapshotStore is file-style key-value persistence for pipeline snapshots.
// Readable at process start to warm state, writable after each refresh.
// A key's value is an opaque JSON blob owned by the writer.
type SnapshotStore interface {
	// Get retrieves the blob stored under key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the blob under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// SwapArchive persists raw swap records for offline analysis. Append-only;
// the rolling in-memory history remains the scoring ground truth.
type SwapArchive interface {
	// InsertBatch appends a batch of swap records.
	InsertBatch(ctx context.Context, records []domain.SwapRecord) error

	// Close releases the underlying connection.
	Close() error
}
