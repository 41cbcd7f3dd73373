package postgres

import (
	"context"
	"fmt"

	"dexsignal/internal/storage"
)

// SnapshotStore is a Postgres-backed implementation of storage.SnapshotStore.
// Snapshots live in a single table keyed by name; Put upserts so the latest
// refresh always wins.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new Postgres snapshot store.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Get retrieves the blob stored under key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE key = $1`, key,
	).Scan(&data)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return data, nil
}

// Put stores the blob under key, overwriting any previous value.
func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (key, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM snapshots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
