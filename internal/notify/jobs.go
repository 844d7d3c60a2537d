// Package notify carries the post-payment messaging: email jobs queued by
// the dispatcher, the worker that delivers them, and the receipt-document
// jobs handed to the rendering service.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Queue names. The email queue is consumed by this repo's worker; the
// receipt queue is consumed by the document rendering service.
const (
	EmailQueue   = "email_jobs"
	ReceiptQueue = "receipt_jobs"
)

// Email job types.
const (
	JobOrderReceipt    = "order_receipt"
	JobCampaignSummary = "campaign_summary"
)

// JobReceiptDocument labels a queued receipt render.
const JobReceiptDocument = "receipt_document"

// EmailJob is one queued delivery. Fields carries the template values the
// renderer needs; keys depend on Type.
type EmailJob struct {
	Type    string            `json:"type"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ReceiptJob asks the document service to render a payment receipt.
type ReceiptJob struct {
	Type        string    `json:"type"`
	BulkOrderID uuid.UUID `json:"bulk_order_id"`
	EntryID     uuid.UUID `json:"entry_id"`
	Reference   string    `json:"reference"`
	AmountKobo  int64     `json:"amount_kobo"`
}

// Enqueuer places raw jobs on a named queue. *rabbitmq.Client satisfies it.
type Enqueuer interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}
