// Package order models the direct purchase flow: a bulk order (one garment
// drive with a unit price) and the individual entries buyers pay for, each
// settled through its own provider transaction or a coupon.
package order

import (
	"time"

	"github.com/google/uuid"
)

// BulkOrder is one merch drive. Entries reference it and inherit its unit
// price at submission time.
type BulkOrder struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	UnitAmountKobo int64     `json:"unit_amount_kobo"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderEntry is a single buyer's order inside a bulk order. Paid flips
// false to true exactly once, either by webhook confirmation or by a coupon
// at submission; nothing flips it back.
type OrderEntry struct {
	ID          uuid.UUID  `json:"id"`
	BulkOrderID uuid.UUID  `json:"bulk_order_id"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Size        string     `json:"size"`
	AmountKobo  int64      `json:"amount_kobo"`
	CouponCode  string     `json:"coupon_code,omitempty"`
	Paid        bool       `json:"paid"`
	ProviderRef string     `json:"provider_ref,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
