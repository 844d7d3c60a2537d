// Package campaign models the spreadsheet-driven bulk flow: a coordinator
// registers a campaign, uploads a roster, and pays once for every row. The
// participants themselves are only materialized after the payment settles.
package campaign

import (
	"time"

	"github.com/google/uuid"
)

// Status walks strictly forward. COMPLETED is terminal and only the payment
// confirmation path may set it.
type Status string

const (
	StatusPending    Status = "PENDING"    // registered, no roster yet
	StatusUploaded   Status = "UPLOADED"   // roster attached, not validated
	StatusValid      Status = "VALID"      // roster parsed and priced
	StatusProcessing Status = "PROCESSING" // provider transaction opened
	StatusCompleted  Status = "COMPLETED"  // payment confirmed
)

// Campaign is one spreadsheet bulk order. ReferenceCode doubles as the
// provider payment reference (the EXL-... scheme).
type Campaign struct {
	ID               uuid.UUID  `json:"id"`
	ReferenceCode    string     `json:"reference_code"`
	Title            string     `json:"title"`
	CoordinatorName  string     `json:"coordinator_name"`
	CoordinatorEmail string     `json:"coordinator_email"`
	UnitAmountKobo   int64      `json:"unit_amount_kobo"`
	AmountKobo       int64      `json:"amount_kobo"` // rows x unit, priced at validation
	Status           Status     `json:"status"`
	SheetURL         string     `json:"sheet_url,omitempty"`
	RowCount         int        `json:"row_count"`
	Paid             bool       `json:"paid"`
	ProviderRef      string     `json:"provider_ref,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Participant is one materialized roster row. The (CampaignID, RowNo) pair
// is unique so redelivered confirmations cannot double-create.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	RowNo      int       `json:"row_no"`
	FullName   string    `json:"full_name"`
	Size       string    `json:"size"`
	CouponCode string    `json:"coupon_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
