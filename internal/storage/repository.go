package storage

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable marks any failure of the underlying store.
var ErrStoreUnavailable = errors.New("store unavailable")

// Store defines the key-value capability every ledger backend offers.
// This allows us to swap storage implementations (BadgerDB, SQLite, Redis, memory)
// without changing the digest logic that uses it.
type Store interface {
	// Has reports whether a record exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// PutIfAbsent records key with the given time. A second call for the same key
	// leaves the first record untouched and returns nil.
	PutIfAbsent(ctx context.Context, key string, at time.Time) error

	// Close gracefully shuts down the store connection.
	Close() error
}

// LinkLedger remembers which source links were already consumed.
type LinkLedger interface {
	Seen(ctx context.Context, link string) (bool, error)
	MarkSeen(ctx context.Context, link string) error
}

// WindowLedger remembers which delivery windows were already handled.
type WindowLedger interface {
	IsCompleted(ctx context.Context, key string) (bool, error)
	MarkCompleted(ctx context.Context, key string) error
}
