// Package coupon models single-use discount codes. Every code lives in the
// pool of exactly one bulk order or campaign and settles one entry or one
// roster row.
package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCouponRejected means the code does not exist in that pool or was
// already consumed. Callers decide whether that is fatal.
var ErrCouponRejected = errors.New("coupon does not exist or was already used")

// Coupon is a single-use code scoped to one pool. PoolID is the bulk order
// or campaign the code belongs to.
type Coupon struct {
	PoolID    uuid.UUID
	Code      string
	Used      bool
	UsedBy    string
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Store persists coupon pools.
type Store interface {
	// Seed adds fresh codes to a pool. Existing codes are left untouched.
	Seed(ctx context.Context, poolID uuid.UUID, codes []string) error

	// Redeem atomically consumes the code if it exists in the pool and is
	// still unused. It reports whether this call consumed it; a false return
	// with nil error means the code was missing or already spent.
	Redeem(ctx context.Context, poolID uuid.UUID, code, usedBy string) (bool, error)
}
