package memory

import (
	"context"
	"sync"

	"dexsignal/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore,
// used in tests and as a warm cache tier.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

// Get retrieves the blob stored under key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores the blob under key, overwriting any previous value.
func (s *SnapshotStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
