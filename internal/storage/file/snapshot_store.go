package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dexsignal/internal/storage"
)

// SnapshotStore persists each snapshot key as one JSON file under a root
// directory. Writes go through a temp file plus rename so readers never see
// a partial blob.
type SnapshotStore struct {
	root string
}

// NewSnapshotStore creates the root directory if needed and returns a store.
func NewSnapshotStore(root string) (*SnapshotStore, error) {
	if root == "" {
		return nil, storage.ErrInvalidInput
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{root: root}, nil
}

// path maps a key to a file path. Path separators in keys (e.g. the
// "universe/<bucket>" keys) become subdirectories under root.
func (s *SnapshotStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", storage.ErrInvalidInput
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+".json"), nil
}

// Get retrieves the blob stored under key. Returns ErrNotFound if absent.
func (s *SnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Put stores the blob under key, overwriting any previous value.
func (s *SnapshotStore) Put(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create snapshot subdir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
