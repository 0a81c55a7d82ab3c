package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wagerboard/internal/board"
	"wagerboard/internal/store"
)

func snapshotWithWager(t *testing.T, minor int64) board.Snapshot {
	t.Helper()
	var r board.WagerRecord
	raw, _ := json.Marshal(map[string]interface{}{"username": "u", "wager": minor})
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return board.Build(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), []board.WagerRecord{r})
}

func TestRecords_CurrentAbsent(t *testing.T) {
	records := store.NewRecords(store.NewMemoryStore())

	snap, err := records.Current(context.Background())
	if err != nil {
		t.Fatalf("absence must not be an error, got: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
}

func TestRecords_CurrentRoundTrip(t *testing.T) {
	records := store.NewRecords(store.NewMemoryStore())
	ctx := context.Background()

	want := snapshotWithWager(t, 500)
	if err := records.SetCurrent(ctx, want); err != nil {
		t.Fatalf("set current: %v", err)
	}

	got, err := records.Current(ctx)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if got == nil || len(got.Entries) != 1 || got.Entries[0].Wager != "5.00" {
		t.Errorf("round trip mangled snapshot: %+v", got)
	}

	if err := records.ClearCurrent(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = records.Current(ctx)
	if err != nil || got != nil {
		t.Errorf("after clear: got (%+v, %v), want (nil, nil)", got, err)
	}
	// Clearing again is a no-op.
	if err := records.ClearCurrent(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestRecords_MarkerMonotonic(t *testing.T) {
	records := store.NewRecords(store.NewMemoryStore())
	ctx := context.Background()

	marker, err := records.Marker(ctx)
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if !marker.IsZero() {
		t.Errorf("absent marker should be the zero time, got %v", marker)
	}

	later := time.Date(2025, 3, 8, 0, 1, 0, 0, time.UTC)
	if err := records.SetMarker(ctx, later); err != nil {
		t.Fatalf("set marker: %v", err)
	}

	// An earlier value must never move the marker backwards.
	earlier := later.Add(-time.Hour)
	if err := records.SetMarker(ctx, earlier); err != nil {
		t.Fatalf("set earlier marker: %v", err)
	}

	got, err := records.Marker(ctx)
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if !got.Equal(later) {
		t.Errorf("marker moved backwards: got %v, want %v", got, later)
	}
}

func TestRecords_StorageFailureIsDistinctFromAbsence(t *testing.T) {
	mem := store.NewMemoryStore()
	records := store.NewRecords(mem)

	mem.SetError(errors.New("disk on fire"))

	_, err := records.Current(context.Background())
	if err == nil {
		t.Fatal("expected a storage error")
	}
	var se *store.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
	if se.Key != store.KeyCurrent {
		t.Errorf("failing key: got %q, want %q", se.Key, store.KeyCurrent)
	}
}

func TestRecords_ArchivedOverwrite(t *testing.T) {
	records := store.NewRecords(store.NewMemoryStore())
	ctx := context.Background()

	if err := records.SetArchived(ctx, snapshotWithWager(t, 100)); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	if err := records.SetArchived(ctx, snapshotWithWager(t, 900)); err != nil {
		t.Fatalf("second archive: %v", err)
	}

	got, err := records.Archived(ctx)
	if err != nil {
		t.Fatalf("archived: %v", err)
	}
	if got == nil || got.Entries[0].Wager != "9.00" {
		t.Errorf("archive should hold only the latest week, got %+v", got)
	}
}
