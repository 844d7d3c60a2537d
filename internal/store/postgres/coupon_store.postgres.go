package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CouponStore implements coupon.Store. Redeem is a single compare-and-swap
// UPDATE, so two buyers racing for one code cannot both win.
type CouponStore struct {
	db *sql.DB
}

func NewCouponStore(db *sql.DB) *CouponStore {
	return &CouponStore{db: db}
}

func (s *CouponStore) Seed(ctx context.Context, poolID uuid.UUID, codes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO coupons (pool_id, code, used, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (pool_id, code) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare coupon insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, code := range codes {
		if _, err := stmt.ExecContext(ctx, poolID, code, now); err != nil {
			return fmt.Errorf("insert coupon %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit coupon seed: %w", err)
	}
	return nil
}

func (s *CouponStore) Redeem(ctx context.Context, poolID uuid.UUID, code, usedBy string) (bool, error) {
	query := `
		UPDATE coupons
		SET used = TRUE, used_by = $3, used_at = NOW()
		WHERE pool_id = $1 AND code = $2 AND used = FALSE`

	res, err := s.db.ExecContext(ctx, query, poolID, code, usedBy)
	if err != nil {
		return false, fmt.Errorf("redeem coupon: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}
