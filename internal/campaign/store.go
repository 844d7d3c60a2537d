package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfirmResult reports what a payment confirmation did to the row.
type ConfirmResult int

const (
	// ConfirmApplied means this call flipped the paid flag and completed the
	// campaign.
	ConfirmApplied ConfirmResult = iota
	// ConfirmReplay means the campaign was already paid; nothing changed.
	ConfirmReplay
	// ConfirmNotFound means no campaign carries that reference code.
	ConfirmNotFound
)

// Store persists campaigns. ConfirmPayment must take a row-level write lock,
// re-check the paid flag under it, and commit the flip plus the COMPLETED
// status atomically.
type Store interface {
	Create(ctx context.Context, c *Campaign) error
	GetByCode(ctx context.Context, code string) (*Campaign, error)

	// AttachSheet records the roster location: PENDING/UPLOADED/VALID -> UPLOADED.
	AttachSheet(ctx context.Context, code, sheetURL string) error
	// MarkValidated prices the campaign after a successful parse: UPLOADED -> VALID.
	MarkValidated(ctx context.Context, code string, rowCount int, amountKobo int64) error
	// MarkProcessing records that checkout was opened: VALID -> PROCESSING.
	MarkProcessing(ctx context.Context, code string) error

	ConfirmPayment(ctx context.Context, code, providerRef string) (ConfirmResult, error)

	// ListUnpaidBefore returns campaigns in PROCESSING created before cutoff,
	// for the provider verification sweep.
	ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Campaign, error)
	// ListPaidWithoutParticipants returns paid campaigns whose roster was
	// never materialized, so their side effects can be re-dispatched.
	ListPaidWithoutParticipants(ctx context.Context, cutoff time.Time, limit int) ([]*Campaign, error)
}

// ParticipantStore persists materialized roster rows.
type ParticipantStore interface {
	// CreateParticipant inserts the row unless the (campaign, row number)
	// pair already exists. It reports whether a new row was written.
	CreateParticipant(ctx context.Context, p *Participant) (bool, error)
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error)
}
