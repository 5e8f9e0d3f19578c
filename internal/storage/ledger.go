package storage

import (
	"context"
	"time"

	"newsdigest/internal/domain"
)

// Ledger implements both LinkLedger and WindowLedger on top of a Store.
type Ledger struct {
	store Store
	now   func() time.Time
}

var (
	_ LinkLedger   = (*Ledger)(nil)
	_ WindowLedger = (*Ledger)(nil)
)

// NewLedger wraps store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Seen reports whether link was marked by any previous invocation.
func (l *Ledger) Seen(ctx context.Context, link string) (bool, error) {
	return l.store.Has(ctx, domain.LinkKey(link))
}

// MarkSeen records link. Repeated calls are no-ops.
func (l *Ledger) MarkSeen(ctx context.Context, link string) error {
	return l.store.PutIfAbsent(ctx, domain.LinkKey(link), l.now())
}

// IsCompleted reports whether the window key (e.g. FLASH:2024-06-01-09) was handled.
func (l *Ledger) IsCompleted(ctx context.Context, key string) (bool, error) {
	return l.store.Has(ctx, key)
}

// MarkCompleted records the window key. Repeated calls are no-ops.
func (l *Ledger) MarkCompleted(ctx context.Context, key string) error {
	return l.store.PutIfAbsent(ctx, key, l.now())
}
