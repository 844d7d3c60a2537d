package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfirmResult reports what a payment confirmation did to the row.
type ConfirmResult int

const (
	// ConfirmApplied means this call flipped the paid flag.
	ConfirmApplied ConfirmResult = iota
	// ConfirmReplay means the row was already paid; nothing changed.
	ConfirmReplay
	// ConfirmNotFound means no row matches the reference.
	ConfirmNotFound
)

// EntryStore persists order entries. ConfirmPayment must take a row-level
// write lock, re-check the paid flag under it, and commit the flip
// atomically, so that concurrent confirmations of one entry apply once.
type EntryStore interface {
	CreateEntry(ctx context.Context, e *OrderEntry) error
	GetEntry(ctx context.Context, bulkOrderID, entryID uuid.UUID) (*OrderEntry, error)
	ConfirmPayment(ctx context.Context, bulkOrderID, entryID uuid.UUID, providerRef string) (ConfirmResult, error)

	// ListUnpaidBefore returns entries still unpaid that were created before
	// cutoff. The reconciliation sweep checks these against the provider.
	ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*OrderEntry, error)
}

// BulkOrderStore persists the drives entries belong to.
type BulkOrderStore interface {
	CreateBulkOrder(ctx context.Context, bo *BulkOrder) error
	GetBulkOrder(ctx context.Context, id uuid.UUID) (*BulkOrder, error)
}
