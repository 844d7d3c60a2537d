// Package events defines the domain events the webhook service publishes and
// the dispatch worker consumes.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind values for PaymentConfirmed.
const (
	KindDirectOrder = "direct_order"
	KindCampaign    = "campaign"
)

// TypePaymentConfirmed labels a settled payment event.
const TypePaymentConfirmed = "payment.confirmed"

// PaymentConfirmed is published exactly once per settled reference, after the
// database transition commits. Consumers must tolerate redelivery; the
// payload alone identifies the record to act on.
type PaymentConfirmed struct {
	Event        string    `json:"event"`
	Kind         string    `json:"kind"`
	Reference    string    `json:"reference"`
	BulkOrderID  uuid.UUID `json:"bulk_order_id,omitempty"`
	EntryID      uuid.UUID `json:"entry_id,omitempty"`
	CampaignCode string    `json:"campaign_code,omitempty"`
	ProviderRef  string    `json:"provider_ref"`
	AmountKobo   int64     `json:"amount_kobo"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}
