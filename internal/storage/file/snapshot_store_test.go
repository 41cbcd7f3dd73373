package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dexsignal/internal/storage"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, storage.KeySwaps, []byte(`{"pools":{}}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, storage.KeySwaps)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"pools":{}}` {
		t.Errorf("Get = %s", got)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nothing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Bucketed keys like "universe/1700000000" map to subdirectories.
func TestFileStoreNestedKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewSnapshotStore(root)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}

	if err := s.Put(ctx, "universe/1700000000", []byte("[]")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "universe", "1700000000.json")); err != nil {
		t.Fatalf("expected nested snapshot file: %v", err)
	}
	got, err := s.Get(ctx, "universe/1700000000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("Get = %s", got)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "../escape", []byte("x")); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Put traversal key: %v, want ErrInvalidInput", err)
	}
	if _, err := s.Get(ctx, "../escape"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Get traversal key: %v, want ErrInvalidInput", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Absent key: no error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
