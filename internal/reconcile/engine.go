// Package reconcile is the webhook heart of the service: it verifies a
// provider delivery, resolves the payment reference to a record, applies the
// idempotent paid transition, and hands the first-time confirmation to the
// event stream for side effects.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/events"
	"github.com/NzeStan/Material-Wear-sub002/internal/kafka"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reference"
)

// Outcome says what a delivery did.
type Outcome int

const (
	// OutcomeConfirmed is a first-time transition: the paid flag flipped in
	// this call and the confirmed event was dispatched.
	OutcomeConfirmed Outcome = iota
	// OutcomeReplay is an idempotent no-op: the record was already paid.
	OutcomeReplay
	// OutcomeIgnored is an event type this service does not act on.
	OutcomeIgnored
)

// Result is the engine's answer for one delivery.
type Result struct {
	Outcome   Outcome
	Kind      reference.Kind
	Reference string
}

// Engine processes webhook deliveries end to end. Concurrent deliveries of
// one reference inside this process collapse onto a single transition via
// singleflight; the store's row lock covers other processes.
type Engine struct {
	secret    string
	entries   order.EntryStore
	campaigns campaign.Store
	publisher kafka.Publisher
	group     singleflight.Group
	log       zerolog.Logger
}

func NewEngine(secret string, entries order.EntryStore, campaigns campaign.Store, publisher kafka.Publisher, log zerolog.Logger) *Engine {
	return &Engine{
		secret:    secret,
		entries:   entries,
		campaigns: campaigns,
		publisher: publisher,
		log:       log.With().Str("component", "reconcile_engine").Logger(),
	}
}

// HandleWebhook runs the full pipeline on one delivery: signature gate over
// the exact raw body, envelope decode, reference parse, guarded transition,
// post-commit dispatch. The signature is checked before the body is parsed.
func (e *Engine) HandleWebhook(ctx context.Context, body []byte, signature string) (*Result, error) {
	if !paystack.VerifySignature(e.secret, body, signature) {
		e.log.Warn().Msg("webhook rejected: signature missing or invalid")
		return nil, ErrBadSignature
	}

	var evt paystack.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		e.log.Error().Err(err).Msg("webhook rejected: body is not valid JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if evt.Event != paystack.EventChargeSuccess {
		e.log.Info().Str("event", evt.Event).Msg("webhook event ignored")
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	if evt.Data.Reference == "" {
		e.log.Error().Msg("webhook rejected: reference missing")
		return nil, fmt.Errorf("%w: reference missing", ErrMalformedPayload)
	}

	if evt.Data.Status != paystack.StatusSuccess {
		e.log.Error().
			Str("reference", evt.Data.Reference).
			Str("status", evt.Data.Status).
			Msg("webhook rejected: charge not successful")
		return nil, fmt.Errorf("%w: charge status %q", ErrMalformedPayload, evt.Data.Status)
	}

	ref := reference.Parse(evt.Data.Reference)
	if ref.Kind == reference.KindInvalid {
		e.log.Error().Str("reference", evt.Data.Reference).Msg("webhook rejected: unrecognized reference format")
		return nil, fmt.Errorf("%w: unrecognized reference %q", ErrMalformedPayload, evt.Data.Reference)
	}

	return e.dedupConfirm(ctx, ref, evt.Data)
}

// ConfirmVerified applies the same idempotent transition for a charge the
// reconciliation sweep verified against the provider's API. It shares the
// in-process dedup key with the webhook path.
func (e *Engine) ConfirmVerified(ctx context.Context, rawRef string, charge paystack.ChargeData) (*Result, error) {
	if charge.Status != paystack.StatusSuccess {
		return nil, fmt.Errorf("%w: charge status %q", ErrMalformedPayload, charge.Status)
	}
	ref := reference.Parse(rawRef)
	if ref.Kind == reference.KindInvalid {
		return nil, fmt.Errorf("%w: unrecognized reference %q", ErrMalformedPayload, rawRef)
	}
	return e.dedupConfirm(ctx, ref, charge)
}

func (e *Engine) dedupConfirm(ctx context.Context, ref reference.Reference, charge paystack.ChargeData) (*Result, error) {
	v, err, _ := e.group.Do(ref.Raw, func() (interface{}, error) {
		return e.confirm(ctx, ref, charge)
	})
	res, _ := v.(*Result)
	return res, err
}

func (e *Engine) confirm(ctx context.Context, ref reference.Reference, charge paystack.ChargeData) (*Result, error) {
	switch ref.Kind {
	case reference.KindDirectOrder:
		return e.confirmEntry(ctx, ref, charge)
	case reference.KindCampaign:
		return e.confirmCampaign(ctx, ref, charge)
	default:
		return nil, fmt.Errorf("%w: unrecognized reference %q", ErrMalformedPayload, ref.Raw)
	}
}

func (e *Engine) confirmEntry(ctx context.Context, ref reference.Reference, charge paystack.ChargeData) (*Result, error) {
	entry, err := e.entries.GetEntry(ctx, ref.BulkOrderID, ref.EntryID)
	if err != nil {
		if errors.Is(err, order.ErrEntryNotFound) || errors.Is(err, order.ErrBulkOrderNotFound) {
			e.log.Error().Str("reference", ref.Raw).Msg("webhook reference matches no order entry")
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("load entry for %s: %w", ref.Raw, err)
	}

	if entry.AmountKobo != charge.Amount {
		// Money mismatches do not block the transition; they get flagged for
		// a human instead.
		e.log.Warn().
			Str("reference", ref.Raw).
			Int64("expected_kobo", entry.AmountKobo).
			Int64("charged_kobo", charge.Amount).
			Msg("charge amount differs from entry amount")
	}

	providerRef := strconv.FormatInt(charge.ID, 10)
	res, err := e.entries.ConfirmPayment(ctx, ref.BulkOrderID, ref.EntryID, providerRef)
	if err != nil {
		return nil, fmt.Errorf("confirm entry payment for %s: %w", ref.Raw, err)
	}

	switch res {
	case order.ConfirmNotFound:
		return nil, ErrUnknownReference
	case order.ConfirmReplay:
		e.log.Info().Str("reference", ref.Raw).Msg("duplicate delivery, entry already paid")
		return &Result{Outcome: OutcomeReplay, Kind: ref.Kind, Reference: ref.Raw}, nil
	}

	e.log.Info().
		Str("reference", ref.Raw).
		Str("provider_ref", providerRef).
		Int64("amount_kobo", charge.Amount).
		Msg("order entry payment confirmed")

	result := &Result{Outcome: OutcomeConfirmed, Kind: ref.Kind, Reference: ref.Raw}
	if err := e.publishConfirmed(ctx, events.PaymentConfirmed{
		Event:       events.TypePaymentConfirmed,
		Kind:        events.KindDirectOrder,
		Reference:   ref.Raw,
		BulkOrderID: ref.BulkOrderID,
		EntryID:     ref.EntryID,
		ProviderRef: providerRef,
		AmountKobo:  charge.Amount,
		ConfirmedAt: time.Now().UTC(),
	}); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) confirmCampaign(ctx context.Context, ref reference.Reference, charge paystack.ChargeData) (*Result, error) {
	c, err := e.campaigns.GetByCode(ctx, ref.Code)
	if err != nil {
		if errors.Is(err, campaign.ErrCampaignNotFound) {
			e.log.Error().Str("reference", ref.Raw).Msg("webhook reference matches no campaign")
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("load campaign %s: %w", ref.Code, err)
	}

	if c.AmountKobo != charge.Amount {
		e.log.Warn().
			Str("reference", ref.Raw).
			Int64("expected_kobo", c.AmountKobo).
			Int64("charged_kobo", charge.Amount).
			Msg("charge amount differs from campaign amount")
	}

	providerRef := strconv.FormatInt(charge.ID, 10)
	res, err := e.campaigns.ConfirmPayment(ctx, ref.Code, providerRef)
	if err != nil {
		return nil, fmt.Errorf("confirm campaign payment for %s: %w", ref.Code, err)
	}

	switch res {
	case campaign.ConfirmNotFound:
		return nil, ErrUnknownReference
	case campaign.ConfirmReplay:
		e.log.Info().Str("reference", ref.Raw).Msg("duplicate delivery, campaign already paid")
		return &Result{Outcome: OutcomeReplay, Kind: ref.Kind, Reference: ref.Raw}, nil
	}

	e.log.Info().
		Str("reference", ref.Raw).
		Str("provider_ref", providerRef).
		Int64("amount_kobo", charge.Amount).
		Msg("campaign payment confirmed")

	result := &Result{Outcome: OutcomeConfirmed, Kind: ref.Kind, Reference: ref.Raw}
	if err := e.publishConfirmed(ctx, events.PaymentConfirmed{
		Event:        events.TypePaymentConfirmed,
		Kind:         events.KindCampaign,
		Reference:    ref.Raw,
		CampaignCode: ref.Code,
		ProviderRef:  providerRef,
		AmountKobo:   charge.Amount,
		ConfirmedAt:  time.Now().UTC(),
	}); err != nil {
		return result, err
	}
	return result, nil
}

// publishConfirmed hands a first-time confirmation to the event stream. The
// database transition is already committed; a publish failure must never
// undo it, so the error is translated, logged loudly, and left to the
// reconciliation sweep to repair.
func (e *Engine) publishConfirmed(ctx context.Context, evt events.PaymentConfirmed) error {
	if err := e.publisher.Publish(ctx, evt.Reference, evt); err != nil {
		e.log.Error().Err(err).
			Str("reference", evt.Reference).
			Str("kind", evt.Kind).
			Msg("CRITICAL: payment committed but confirmed event not published")
		return fmt.Errorf("%w: %v", ErrSideEffects, err)
	}
	return nil
}

// RepublishCampaign re-emits the confirmed event for a paid campaign whose
// roster was never materialized. Consumers are idempotent, so a duplicate
// emission is harmless.
func (e *Engine) RepublishCampaign(ctx context.Context, c *campaign.Campaign) error {
	confirmedAt := time.Now().UTC()
	if c.PaidAt != nil {
		confirmedAt = *c.PaidAt
	}
	evt := events.PaymentConfirmed{
		Event:        events.TypePaymentConfirmed,
		Kind:         events.KindCampaign,
		Reference:    c.ReferenceCode,
		CampaignCode: c.ReferenceCode,
		ProviderRef:  c.ProviderRef,
		AmountKobo:   c.AmountKobo,
		ConfirmedAt:  confirmedAt,
	}
	if err := e.publisher.Publish(ctx, c.ReferenceCode, evt); err != nil {
		return fmt.Errorf("republish confirmed event for %s: %w", c.ReferenceCode, err)
	}
	return nil
}
