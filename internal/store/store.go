package store

import (
	"context"
	"fmt"
)

// Record keys. The whole persisted state of the service is three small
// records plus a debugging copy of the raw upstream payload.
const (
	KeyCurrent  = "current_leaderboard"
	KeyArchived = "previous_leaderboards"
	KeyMarker   = "last_reset"
	KeyRaw      = "raw_stats"
)

// Store is durable keyed blob storage. Put must be atomic with respect to
// Get: a reader never observes a partially written record. Delete of an
// absent key is not an error. Absence is reported via the ok flag, never
// as an error.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// StorageError is an I/O failure on a named record. Callers distinguish it
// from plain absence: absence is an expected state, a StorageError is not.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error on record %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Key: key, Err: err}
}
