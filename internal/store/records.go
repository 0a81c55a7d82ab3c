package store

import (
	"context"
	"encoding/json"
	"time"

	"wagerboard/internal/board"
)

// Records is the typed facade over the blob store: the current leaderboard,
// the single archived leaderboard, and the last-reset marker. Absence is a
// normal return (nil snapshot, zero marker time), distinct from a
// StorageError. Read-only consumers use it as the cache view; the scheduler
// is the only writer.
type Records struct {
	blob Store
}

func NewRecords(blob Store) *Records {
	return &Records{blob: blob}
}

// Current returns the live leaderboard, or nil when none has been written
// since the last rollover.
func (r *Records) Current(ctx context.Context) (*board.Snapshot, error) {
	return r.getSnapshot(ctx, KeyCurrent)
}

func (r *Records) SetCurrent(ctx context.Context, snap board.Snapshot) error {
	return r.putSnapshot(ctx, KeyCurrent, snap)
}

// ClearCurrent removes the live leaderboard. Clearing an already-absent
// record is a no-op.
func (r *Records) ClearCurrent(ctx context.Context) error {
	return r.blob.Delete(ctx, KeyCurrent)
}

// Archived returns the snapshot captured at the most recent rollover, or
// nil before the first rollover has happened.
func (r *Records) Archived(ctx context.Context) (*board.Snapshot, error) {
	return r.getSnapshot(ctx, KeyArchived)
}

// SetArchived overwrites the archive: exactly one archived week is retained.
func (r *Records) SetArchived(ctx context.Context, snap board.Snapshot) error {
	return r.putSnapshot(ctx, KeyArchived, snap)
}

type markerWire struct {
	LastReset int64 `json:"lastReset"`
}

// Marker returns the last-processed-boundary marker, or the zero time when
// no rollover has been recorded yet.
func (r *Records) Marker(ctx context.Context) (time.Time, error) {
	data, ok, err := r.blob.Get(ctx, KeyMarker)
	if err != nil || !ok {
		return time.Time{}, err
	}
	var w markerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return time.Time{}, storageErr(KeyMarker, err)
	}
	return time.UnixMilli(w.LastReset).UTC(), nil
}

// SetMarker advances the marker to t. The marker is monotonic: a value
// earlier than the stored one is silently ignored, so the record can never
// move backwards and re-arm an already-processed boundary.
func (r *Records) SetMarker(ctx context.Context, t time.Time) error {
	existing, err := r.Marker(ctx)
	if err != nil {
		return err
	}
	if t.Before(existing) {
		return nil
	}
	data, err := json.Marshal(markerWire{LastReset: t.UnixMilli()})
	if err != nil {
		return storageErr(KeyMarker, err)
	}
	return r.blob.Put(ctx, KeyMarker, data)
}

// SetRaw stores the raw upstream response for debugging. Best-effort at the
// call sites: failures are logged, never acted on.
func (r *Records) SetRaw(ctx context.Context, data []byte) error {
	return r.blob.Put(ctx, KeyRaw, data)
}

func (r *Records) getSnapshot(ctx context.Context, key string) (*board.Snapshot, error) {
	data, ok, err := r.blob.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var snap board.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, storageErr(key, err)
	}
	return &snap, nil
}

func (r *Records) putSnapshot(ctx context.Context, key string, snap board.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return storageErr(key, err)
	}
	return r.blob.Put(ctx, key, data)
}
