package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NzeStan/Material-Wear-sub002/internal/order"
)

// BulkOrderStore implements order.BulkOrderStore.
type BulkOrderStore struct {
	db *sql.DB
}

func NewBulkOrderStore(db *sql.DB) *BulkOrderStore {
	return &BulkOrderStore{db: db}
}

func (s *BulkOrderStore) CreateBulkOrder(ctx context.Context, bo *order.BulkOrder) error {
	query := `
		INSERT INTO bulk_orders (id, title, unit_amount_kobo, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, bo.ID, bo.Title, bo.UnitAmountKobo, bo.CreatedAt); err != nil {
		return fmt.Errorf("insert bulk order: %w", err)
	}
	return nil
}

func (s *BulkOrderStore) GetBulkOrder(ctx context.Context, id uuid.UUID) (*order.BulkOrder, error) {
	query := `
		SELECT id, title, unit_amount_kobo, created_at
		FROM bulk_orders
		WHERE id = $1`

	var bo order.BulkOrder
	err := s.db.QueryRowContext(ctx, query, id).Scan(&bo.ID, &bo.Title, &bo.UnitAmountKobo, &bo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrBulkOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch bulk order: %w", err)
	}
	return &bo, nil
}
