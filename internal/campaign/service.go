package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reference"
	"github.com/NzeStan/Material-Wear-sub002/internal/roster"
)

// PaymentInitializer registers a pending transaction with the provider and
// returns the hosted checkout details.
type PaymentInitializer interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
}

// Service owns the campaign lifecycle up to checkout. The webhook path takes
// over from PROCESSING onward.
type Service struct {
	campaigns   Store
	fetcher     roster.Fetcher
	payments    PaymentInitializer
	callbackURL string
	log         zerolog.Logger
}

func NewService(campaigns Store, fetcher roster.Fetcher, payments PaymentInitializer, callbackURL string, log zerolog.Logger) *Service {
	return &Service{
		campaigns:   campaigns,
		fetcher:     fetcher,
		payments:    payments,
		callbackURL: callbackURL,
		log:         log.With().Str("component", "campaign_service").Logger(),
	}
}

// CreateInput registers a new campaign.
type CreateInput struct {
	Title            string `json:"title"`
	CoordinatorName  string `json:"coordinator_name"`
	CoordinatorEmail string `json:"coordinator_email"`
	UnitAmountKobo   int64  `json:"unit_amount_kobo"`
}

// Create issues a fresh EXL reference code and stores the campaign in
// PENDING.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	code, err := reference.NewCampaignCode()
	if err != nil {
		return nil, fmt.Errorf("issue reference code: %w", err)
	}

	c := &Campaign{
		ID:               uuid.New(),
		ReferenceCode:    code,
		Title:            strings.TrimSpace(in.Title),
		CoordinatorName:  strings.TrimSpace(in.CoordinatorName),
		CoordinatorEmail: strings.TrimSpace(in.CoordinatorEmail),
		UnitAmountKobo:   in.UnitAmountKobo,
		Status:           StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	s.log.Info().
		Str("campaign_id", c.ID.String()).
		Str("reference_code", c.ReferenceCode).
		Msg("campaign registered")
	return c, nil
}

// AttachRoster stores the sheet location, then fetches and parses it to
// price the campaign. A campaign that already opened checkout or settled
// rejects new rosters. On a parse failure the campaign stays UPLOADED so the
// coordinator can fix the sheet and retry.
func (s *Service) AttachRoster(ctx context.Context, code, sheetURL string) (*Campaign, error) {
	if strings.TrimSpace(sheetURL) == "" {
		return nil, fmt.Errorf("%w: sheet url is required", ErrInvalidCampaign)
	}

	c, err := s.campaigns.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case StatusPending, StatusUploaded, StatusValid:
	default:
		return nil, ErrRosterNotAttachable
	}

	if err := s.campaigns.AttachSheet(ctx, code, sheetURL); err != nil {
		return nil, fmt.Errorf("attach sheet: %w", err)
	}

	data, err := s.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	rows, err := roster.ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	amount := int64(len(rows)) * c.UnitAmountKobo
	if err := s.campaigns.MarkValidated(ctx, code, len(rows), amount); err != nil {
		return nil, fmt.Errorf("mark validated: %w", err)
	}

	s.log.Info().
		Str("reference_code", code).
		Int("rows", len(rows)).
		Int64("amount_kobo", amount).
		Msg("roster validated")

	return s.campaigns.GetByCode(ctx, code)
}

// PaymentLink is the hosted checkout handoff for a campaign.
type PaymentLink struct {
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount_kobo"`
	PaymentURL string `json:"payment_url"`
}

// InitializePayment opens the provider transaction for a validated campaign
// and moves it to PROCESSING. The reference is the campaign's own EXL code,
// which the webhook will echo back.
func (s *Service) InitializePayment(ctx context.Context, code string) (*PaymentLink, error) {
	c, err := s.campaigns.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.Paid {
		return nil, ErrAlreadyPaid
	}
	if c.Status != StatusValid && c.Status != StatusProcessing {
		return nil, ErrCampaignNotPayable
	}

	init, err := s.payments.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       c.CoordinatorEmail,
		Amount:      c.AmountKobo,
		Reference:   c.ReferenceCode,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize payment for %s: %w", c.ReferenceCode, err)
	}

	if c.Status == StatusValid {
		if err := s.campaigns.MarkProcessing(ctx, code); err != nil {
			return nil, fmt.Errorf("mark processing: %w", err)
		}
	}

	return &PaymentLink{
		Reference:  c.ReferenceCode,
		AmountKobo: c.AmountKobo,
		PaymentURL: init.AuthorizationURL,
	}, nil
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCampaign)
	}
	if strings.TrimSpace(in.CoordinatorName) == "" {
		return fmt.Errorf("%w: coordinator name is required", ErrInvalidCampaign)
	}
	if strings.TrimSpace(in.CoordinatorEmail) == "" {
		return fmt.Errorf("%w: coordinator email is required", ErrInvalidCampaign)
	}
	if in.UnitAmountKobo <= 0 {
		return fmt.Errorf("%w: unit amount must be positive", ErrInvalidCampaign)
	}
	return nil
}
