package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NzeStan/Material-Wear-sub002/internal/order"
)

// EntryStore implements order.EntryStore.
type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) CreateEntry(ctx context.Context, e *order.OrderEntry) error {
	query := `
		INSERT INTO order_entries (id, bulk_order_id, full_name, email, size, amount_kobo, coupon_code, paid, provider_ref, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.BulkOrderID,
		e.FullName,
		e.Email,
		e.Size,
		e.AmountKobo,
		e.CouponCode,
		e.Paid,
		e.ProviderRef,
		e.PaidAt,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order entry: %w", err)
	}
	return nil
}

func (s *EntryStore) GetEntry(ctx context.Context, bulkOrderID, entryID uuid.UUID) (*order.OrderEntry, error) {
	query := `
		SELECT id, bulk_order_id, full_name, email, size, amount_kobo, coupon_code, paid, provider_ref, paid_at, created_at
		FROM order_entries
		WHERE id = $1 AND bulk_order_id = $2`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, entryID, bulkOrderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch order entry: %w", err)
	}
	return e, nil
}

// ConfirmPayment serializes concurrent deliveries on a row lock, re-checks
// the paid flag under it, and commits the one-way flip. The transaction is
// all-or-nothing: any failure rolls back and the entry stays unpaid.
func (s *EntryStore) ConfirmPayment(ctx context.Context, bulkOrderID, entryID uuid.UUID, providerRef string) (order.ConfirmResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return order.ConfirmNotFound, fmt.Errorf("begin confirm transaction: %w", err)
	}
	defer tx.Rollback()

	var paid bool
	err = tx.QueryRowContext(ctx,
		`SELECT paid FROM order_entries WHERE id = $1 AND bulk_order_id = $2 FOR UPDATE`,
		entryID, bulkOrderID,
	).Scan(&paid)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ConfirmNotFound, nil
	}
	if err != nil {
		return order.ConfirmNotFound, fmt.Errorf("lock order entry: %w", err)
	}

	if paid {
		return order.ConfirmReplay, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE order_entries SET paid = TRUE, provider_ref = $3, paid_at = NOW() WHERE id = $1 AND bulk_order_id = $2`,
		entryID, bulkOrderID, providerRef,
	)
	if err != nil {
		return order.ConfirmNotFound, fmt.Errorf("mark order entry paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return order.ConfirmNotFound, fmt.Errorf("commit payment confirmation: %w", err)
	}
	return order.ConfirmApplied, nil
}

func (s *EntryStore) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*order.OrderEntry, error) {
	query := `
		SELECT id, bulk_order_id, full_name, email, size, amount_kobo, coupon_code, paid, provider_ref, paid_at, created_at
		FROM order_entries
		WHERE paid = FALSE AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpaid entries: %w", err)
	}
	defer rows.Close()

	var entries []*order.OrderEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unpaid entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unpaid entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*order.OrderEntry, error) {
	var e order.OrderEntry
	var paidAt sql.NullTime
	err := row.Scan(
		&e.ID,
		&e.BulkOrderID,
		&e.FullName,
		&e.Email,
		&e.Size,
		&e.AmountKobo,
		&e.CouponCode,
		&e.Paid,
		&e.ProviderRef,
		&paidAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		e.PaidAt = &paidAt.Time
	}
	return &e, nil
}
