package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "finflow.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_LoadMissingKey(t *testing.T) {
	store := newTestSQLite(t)
	v, found, err := store.Load(context.Background(), "nope")
	if err != nil || found || v != nil {
		t.Fatalf("expected missing key, got v=%q found=%v err=%v", v, found, err)
	}
}

func TestSQLiteStore_SaveOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	if err := store.Save(ctx, KeyTheme, []byte("rose")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, KeyTheme, []byte("slate")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, found, err := store.Load(ctx, KeyTheme)
	if err != nil || !found || string(v) != "slate" {
		t.Fatalf("unexpected load: v=%q found=%v err=%v", v, found, err)
	}

	if err := store.Delete(ctx, KeyTheme); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := store.Load(ctx, KeyTheme); found {
		t.Fatalf("expected key to be deleted")
	}
	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, KeyTheme); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finflow.db")

	first, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, KeyLastReset, []byte("2025-01-06T08:00:00.000Z")); err != nil {
		t.Fatalf("save: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	v, found, err := second.Load(ctx, KeyLastReset)
	if err != nil || !found || string(v) != "2025-01-06T08:00:00.000Z" {
		t.Fatalf("unexpected load after reopen: v=%q found=%v err=%v", v, found, err)
	}
	if err := second.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
