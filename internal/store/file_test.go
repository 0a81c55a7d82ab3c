package store_test

import (
	"context"
	"testing"

	"wagerboard/internal/store"
)

func TestFileStore_PutGet(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if err := fs.Put(ctx, store.KeyCurrent, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, ok, err := fs.Get(ctx, store.KeyCurrent)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("record should exist")
	}
	if string(data) != `{"a":1}` {
		t.Errorf("got %s, want {\"a\":1}", data)
	}
}

func TestFileStore_GetAbsent(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	data, ok, err := fs.Get(context.Background(), store.KeyArchived)
	if err != nil {
		t.Fatalf("absence must not be an error, got: %v", err)
	}
	if ok || data != nil {
		t.Errorf("expected absent, got ok=%v data=%s", ok, data)
	}
}

func TestFileStore_PutOverwrites(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	fs.Put(ctx, store.KeyCurrent, []byte("old"))
	if err := fs.Put(ctx, store.KeyCurrent, []byte("new")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, _, _ := fs.Get(ctx, store.KeyCurrent)
	if string(data) != "new" {
		t.Errorf("got %s, want new", data)
	}
}

func TestFileStore_DeleteIdempotent(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	// Deleting a record that was never written is not an error.
	if err := fs.Delete(ctx, store.KeyCurrent); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	fs.Put(ctx, store.KeyCurrent, []byte("x"))
	if err := fs.Delete(ctx, store.KeyCurrent); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := fs.Get(ctx, store.KeyCurrent); ok {
		t.Error("record should be gone after delete")
	}
	if err := fs.Delete(ctx, store.KeyCurrent); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
