package memory

import (
	"context"
	"errors"
	"testing"

	"dexsignal/internal/storage"
)

func TestSnapshotStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	if err := s.Put(ctx, storage.KeyPools, []byte(`{"pools":[]}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, storage.KeyPools)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"pools":[]}` {
		t.Errorf("Get = %s", got)
	}
}

func TestSnapshotStoreGetMissing(t *testing.T) {
	s := NewSnapshotStore()
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	if err := s.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get = %s, want v2", got)
	}
}

func TestSnapshotStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// The store must copy on write and read so callers cannot mutate retained
// state through shared slices.
func TestSnapshotStoreDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	src := []byte("abc")
	if err := s.Put(ctx, "k", src); err != nil {
		t.Fatalf("Put: %v", err)
	}
	src[0] = 'x'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value mutated through caller slice: %s", got)
	}

	got[0] = 'y'
	again, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %s", again)
	}
}
