package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/coupon"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reference"
)

// PaymentInitializer registers a pending transaction with the provider and
// returns the hosted checkout details.
type PaymentInitializer interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
}

// Service owns the direct purchase flow: creating bulk orders, taking entry
// submissions, settling them by coupon or handing the buyer to checkout.
type Service struct {
	bulkOrders  BulkOrderStore
	entries     EntryStore
	coupons     coupon.Store
	payments    PaymentInitializer
	callbackURL string
	log         zerolog.Logger
}

func NewService(bulkOrders BulkOrderStore, entries EntryStore, coupons coupon.Store, payments PaymentInitializer, callbackURL string, log zerolog.Logger) *Service {
	return &Service{
		bulkOrders:  bulkOrders,
		entries:     entries,
		coupons:     coupons,
		payments:    payments,
		callbackURL: callbackURL,
		log:         log.With().Str("component", "order_service").Logger(),
	}
}

// CreateBulkOrder opens a new drive with the given unit price.
func (s *Service) CreateBulkOrder(ctx context.Context, title string, unitAmountKobo int64) (*BulkOrder, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidSubmission)
	}
	if unitAmountKobo <= 0 {
		return nil, fmt.Errorf("%w: unit amount must be positive", ErrInvalidSubmission)
	}

	bo := &BulkOrder{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(title),
		UnitAmountKobo: unitAmountKobo,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.bulkOrders.CreateBulkOrder(ctx, bo); err != nil {
		return nil, fmt.Errorf("create bulk order: %w", err)
	}
	return bo, nil
}

// SeedCoupons adds codes to a bulk order's pool.
func (s *Service) SeedCoupons(ctx context.Context, bulkOrderID uuid.UUID, codes []string) error {
	if _, err := s.bulkOrders.GetBulkOrder(ctx, bulkOrderID); err != nil {
		return err
	}
	if len(codes) == 0 {
		return fmt.Errorf("%w: no codes given", ErrInvalidSubmission)
	}
	return s.coupons.Seed(ctx, bulkOrderID, codes)
}

// SubmitEntryInput is one buyer's submission.
type SubmitEntryInput struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Size       string `json:"size"`
	CouponCode string `json:"coupon_code"`
}

// SubmitEntryResult carries the persisted entry plus, when money is owed,
// the provider checkout link and the reference the webhook will echo back.
type SubmitEntryResult struct {
	Entry      *OrderEntry `json:"entry"`
	Reference  string      `json:"reference,omitempty"`
	PaymentURL string      `json:"payment_url,omitempty"`
}

// SubmitEntry records an entry against a bulk order. A valid coupon settles
// the entry immediately and no provider transaction is opened; otherwise the
// buyer gets a checkout URL and the entry stays unpaid until the webhook
// confirms the charge.
func (s *Service) SubmitEntry(ctx context.Context, bulkOrderID uuid.UUID, in SubmitEntryInput) (*SubmitEntryResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	bo, err := s.bulkOrders.GetBulkOrder(ctx, bulkOrderID)
	if err != nil {
		return nil, err
	}

	entry := &OrderEntry{
		ID:          uuid.New(),
		BulkOrderID: bo.ID,
		FullName:    strings.TrimSpace(in.FullName),
		Email:       strings.TrimSpace(in.Email),
		Size:        strings.TrimSpace(in.Size),
		AmountKobo:  bo.UnitAmountKobo,
		CreatedAt:   time.Now().UTC(),
	}

	if code := strings.TrimSpace(in.CouponCode); code != "" {
		ok, err := s.coupons.Redeem(ctx, bo.ID, code, entry.Email)
		if err != nil {
			return nil, fmt.Errorf("redeem coupon %q: %w", code, err)
		}
		if !ok {
			return nil, coupon.ErrCouponRejected
		}
		now := time.Now().UTC()
		entry.Paid = true
		entry.PaidAt = &now
		entry.CouponCode = code
	}

	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		if entry.Paid {
			// The coupon is already spent; losing the entry now needs a human.
			s.log.Error().Err(err).
				Str("bulk_order_id", bo.ID.String()).
				Str("coupon", entry.CouponCode).
				Msg("CRITICAL: coupon consumed but entry not persisted")
		}
		return nil, fmt.Errorf("create entry: %w", err)
	}

	if entry.Paid {
		s.log.Info().
			Str("entry_id", entry.ID.String()).
			Str("coupon", entry.CouponCode).
			Msg("entry settled by coupon")
		return &SubmitEntryResult{Entry: entry}, nil
	}

	ref := reference.FormatDirectOrder(bo.ID, entry.ID)
	init, err := s.payments.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       entry.Email,
		Amount:      entry.AmountKobo,
		Reference:   ref,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize payment for %s: %w", ref, err)
	}

	return &SubmitEntryResult{
		Entry:      entry,
		Reference:  ref,
		PaymentURL: init.AuthorizationURL,
	}, nil
}

func (in SubmitEntryInput) validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(in.Size) == "" {
		return fmt.Errorf("%w: size is required", ErrInvalidSubmission)
	}
	return nil
}
