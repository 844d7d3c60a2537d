// Package dispatch bridges confirmed-payment events into their side effects:
// receipt jobs for direct orders, roster materialization and the summary
// email for campaigns. It runs in the worker binary, outside the webhook
// request path, so nothing here can delay or undo a committed payment.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/coupon"
	"github.com/NzeStan/Material-Wear-sub002/internal/events"
	"github.com/NzeStan/Material-Wear-sub002/internal/notify"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
	"github.com/NzeStan/Material-Wear-sub002/internal/roster"
)

// Dispatcher consumes payment.confirmed events and performs the follow-up
// work. Every step is idempotent or at-least-once by construction: returning
// an error leaves the Kafka offset uncommitted and the event comes back.
type Dispatcher struct {
	entries      order.EntryStore
	bulkOrders   order.BulkOrderStore
	campaigns    campaign.Store
	participants campaign.ParticipantStore
	coupons      coupon.Store
	fetcher      roster.Fetcher
	queue        notify.Enqueuer
	log          zerolog.Logger
}

func NewDispatcher(
	entries order.EntryStore,
	bulkOrders order.BulkOrderStore,
	campaigns campaign.Store,
	participants campaign.ParticipantStore,
	coupons coupon.Store,
	fetcher roster.Fetcher,
	queue notify.Enqueuer,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		entries:      entries,
		bulkOrders:   bulkOrders,
		campaigns:    campaigns,
		participants: participants,
		coupons:      coupons,
		fetcher:      fetcher,
		queue:        queue,
		log:          log.With().Str("component", "dispatcher").Logger(),
	}
}

// Handle is the kafka.Handler for the payment.confirmed topic.
func (d *Dispatcher) Handle(ctx context.Context, _ []byte, value []byte) error {
	var evt events.PaymentConfirmed
	if err := json.Unmarshal(value, &evt); err != nil {
		d.log.Error().Err(err).Msg("failed to unmarshal kafka message")
		return err
	}

	if evt.Event != events.TypePaymentConfirmed {
		d.log.Warn().Str("event", evt.Event).Msg("unexpected event type on topic, dropping")
		return nil
	}

	switch evt.Kind {
	case events.KindDirectOrder:
		return d.handleDirectOrder(ctx, evt)
	case events.KindCampaign:
		return d.handleCampaign(ctx, evt)
	default:
		d.log.Warn().Str("kind", evt.Kind).Str("reference", evt.Reference).Msg("unknown payment kind, dropping")
		return nil
	}
}

func (d *Dispatcher) handleDirectOrder(ctx context.Context, evt events.PaymentConfirmed) error {
	entry, err := d.entries.GetEntry(ctx, evt.BulkOrderID, evt.EntryID)
	if err != nil {
		if errors.Is(err, order.ErrEntryNotFound) || errors.Is(err, order.ErrBulkOrderNotFound) {
			// Redelivery cannot repair a missing row. Drop it loudly.
			d.log.Error().Str("reference", evt.Reference).Msg("confirmed entry no longer exists, dropping event")
			return nil
		}
		return fmt.Errorf("load entry for %s: %w", evt.Reference, err)
	}

	bo, err := d.bulkOrders.GetBulkOrder(ctx, entry.BulkOrderID)
	if err != nil {
		if errors.Is(err, order.ErrBulkOrderNotFound) {
			d.log.Error().Str("reference", evt.Reference).Msg("bulk order for confirmed entry no longer exists, dropping event")
			return nil
		}
		return fmt.Errorf("load bulk order for %s: %w", evt.Reference, err)
	}

	emailJob := notify.EmailJob{
		Type:    notify.JobOrderReceipt,
		To:      entry.Email,
		Subject: fmt.Sprintf("Payment received for %s", bo.Title),
		Fields: map[string]string{
			"name":      entry.FullName,
			"item":      bo.Title,
			"size":      entry.Size,
			"amount":    notify.FormatAmount(entry.AmountKobo),
			"reference": evt.Reference,
		},
	}
	if err := d.enqueue(ctx, notify.EmailQueue, emailJob); err != nil {
		return fmt.Errorf("enqueue receipt email for %s: %w", evt.Reference, err)
	}

	receiptJob := notify.ReceiptJob{
		Type:        notify.JobReceiptDocument,
		BulkOrderID: entry.BulkOrderID,
		EntryID:     entry.ID,
		Reference:   evt.Reference,
		AmountKobo:  entry.AmountKobo,
	}
	if err := d.enqueue(ctx, notify.ReceiptQueue, receiptJob); err != nil {
		return fmt.Errorf("enqueue receipt document for %s: %w", evt.Reference, err)
	}

	d.log.Info().
		Str("reference", evt.Reference).
		Str("email", entry.Email).
		Msg("receipt jobs enqueued")
	return nil
}

func (d *Dispatcher) handleCampaign(ctx context.Context, evt events.PaymentConfirmed) error {
	c, err := d.campaigns.GetByCode(ctx, evt.CampaignCode)
	if err != nil {
		if errors.Is(err, campaign.ErrCampaignNotFound) {
			d.log.Error().Str("reference", evt.Reference).Msg("confirmed campaign no longer exists, dropping event")
			return nil
		}
		return fmt.Errorf("load campaign %s: %w", evt.CampaignCode, err)
	}

	if c.SheetURL == "" {
		d.log.Error().Str("reference", evt.Reference).Msg("paid campaign has no roster attached, dropping event")
		return nil
	}

	data, err := d.fetcher.Fetch(ctx, c.SheetURL)
	if err != nil {
		return fmt.Errorf("fetch roster for %s: %w", c.ReferenceCode, err)
	}
	rows, err := roster.ParseRoster(data)
	if err != nil {
		return fmt.Errorf("parse roster for %s: %w", c.ReferenceCode, err)
	}

	created := 0
	for i, row := range rows {
		rowNo := i + 1
		p := &campaign.Participant{
			ID:         uuid.New(),
			CampaignID: c.ID,
			RowNo:      rowNo,
			FullName:   row.Name,
			Size:       row.Size,
			CouponCode: row.CouponCode,
			CreatedAt:  time.Now().UTC(),
		}
		inserted, err := d.participants.CreateParticipant(ctx, p)
		if err != nil {
			return fmt.Errorf("create participant row %d for %s: %w", rowNo, c.ReferenceCode, err)
		}
		if !inserted {
			// Redelivered event; this row was materialized on an earlier pass.
			continue
		}
		created++

		if row.CouponCode == "" {
			continue
		}
		used, err := d.coupons.Redeem(ctx, c.ID, row.CouponCode, row.Name)
		if err != nil {
			return fmt.Errorf("redeem coupon %s on row %d for %s: %w", row.CouponCode, rowNo, c.ReferenceCode, err)
		}
		if !used {
			// A stale code in the sheet is a coordinator mistake, not a
			// reason to abandon the roster.
			d.log.Warn().
				Str("reference", evt.Reference).
				Str("coupon", row.CouponCode).
				Int("row", rowNo).
				Msg("roster coupon missing or already used")
		}
	}

	summary := notify.EmailJob{
		Type:    notify.JobCampaignSummary,
		To:      c.CoordinatorEmail,
		Subject: fmt.Sprintf("Payment received for %s", c.Title),
		Fields: map[string]string{
			"name":         c.CoordinatorName,
			"title":        c.Title,
			"participants": strconv.Itoa(len(rows)),
			"amount":       notify.FormatAmount(c.AmountKobo),
			"reference":    evt.Reference,
		},
	}
	if err := d.enqueue(ctx, notify.EmailQueue, summary); err != nil {
		return fmt.Errorf("enqueue summary email for %s: %w", c.ReferenceCode, err)
	}

	d.log.Info().
		Str("reference", evt.Reference).
		Int("rows", len(rows)).
		Int("created", created).
		Msg("campaign roster materialized")
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queueName string, job interface{}) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", queueName, err)
	}
	return d.queue.Publish(ctx, queueName, body)
}
