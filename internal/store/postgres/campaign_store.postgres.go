package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
)

// CampaignStore implements campaign.Store. Status walks are guarded
// UPDATEs: zero rows affected means another request moved the campaign
// first, and the caller gets the matching domain error instead of a silent
// overwrite.
type CampaignStore struct {
	db *sql.DB
}

func NewCampaignStore(db *sql.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

func (s *CampaignStore) Create(ctx context.Context, c *campaign.Campaign) error {
	query := `
		INSERT INTO campaigns (id, reference_code, title, coordinator_name, coordinator_email, unit_amount_kobo, amount_kobo, status, sheet_url, row_count, paid, provider_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.ReferenceCode,
		c.Title,
		c.CoordinatorName,
		c.CoordinatorEmail,
		c.UnitAmountKobo,
		c.AmountKobo,
		c.Status,
		c.SheetURL,
		c.RowCount,
		c.Paid,
		c.ProviderRef,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *CampaignStore) GetByCode(ctx context.Context, code string) (*campaign.Campaign, error) {
	query := selectCampaign + ` WHERE reference_code = $1`

	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch campaign: %w", err)
	}
	return c, nil
}

func (s *CampaignStore) AttachSheet(ctx context.Context, code, sheetURL string) error {
	query := `
		UPDATE campaigns
		SET sheet_url = $2, status = $3
		WHERE reference_code = $1 AND status IN ($4, $5, $6)`

	res, err := s.db.ExecContext(ctx, query, code, sheetURL,
		campaign.StatusUploaded,
		campaign.StatusPending, campaign.StatusUploaded, campaign.StatusValid,
	)
	if err != nil {
		return fmt.Errorf("attach roster sheet: %w", err)
	}
	return guardRows(res, campaign.ErrRosterNotAttachable)
}

func (s *CampaignStore) MarkValidated(ctx context.Context, code string, rowCount int, amountKobo int64) error {
	query := `
		UPDATE campaigns
		SET row_count = $2, amount_kobo = $3, status = $4
		WHERE reference_code = $1 AND status = $5`

	res, err := s.db.ExecContext(ctx, query, code, rowCount, amountKobo,
		campaign.StatusValid, campaign.StatusUploaded,
	)
	if err != nil {
		return fmt.Errorf("mark campaign validated: %w", err)
	}
	return guardRows(res, campaign.ErrRosterNotAttachable)
}

func (s *CampaignStore) MarkProcessing(ctx context.Context, code string) error {
	query := `
		UPDATE campaigns
		SET status = $2
		WHERE reference_code = $1 AND status = $3`

	res, err := s.db.ExecContext(ctx, query, code, campaign.StatusProcessing, campaign.StatusValid)
	if err != nil {
		return fmt.Errorf("mark campaign processing: %w", err)
	}
	return guardRows(res, campaign.ErrCampaignNotPayable)
}

// ConfirmPayment mirrors the order entry transition: lock, re-check,
// one-way flip plus the terminal status, commit.
func (s *CampaignStore) ConfirmPayment(ctx context.Context, code, providerRef string) (campaign.ConfirmResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return campaign.ConfirmNotFound, fmt.Errorf("begin confirm transaction: %w", err)
	}
	defer tx.Rollback()

	var paid bool
	err = tx.QueryRowContext(ctx,
		`SELECT paid FROM campaigns WHERE reference_code = $1 FOR UPDATE`,
		code,
	).Scan(&paid)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.ConfirmNotFound, nil
	}
	if err != nil {
		return campaign.ConfirmNotFound, fmt.Errorf("lock campaign: %w", err)
	}

	if paid {
		return campaign.ConfirmReplay, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE campaigns SET paid = TRUE, provider_ref = $2, paid_at = NOW(), status = $3 WHERE reference_code = $1`,
		code, providerRef, campaign.StatusCompleted,
	)
	if err != nil {
		return campaign.ConfirmNotFound, fmt.Errorf("mark campaign paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return campaign.ConfirmNotFound, fmt.Errorf("commit payment confirmation: %w", err)
	}
	return campaign.ConfirmApplied, nil
}

func (s *CampaignStore) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]*campaign.Campaign, error) {
	// Only PROCESSING campaigns have an open provider transaction to verify.
	query := selectCampaign + `
		WHERE paid = FALSE AND status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	return s.list(ctx, query, campaign.StatusProcessing, cutoff, limit)
}

func (s *CampaignStore) ListPaidWithoutParticipants(ctx context.Context, cutoff time.Time, limit int) ([]*campaign.Campaign, error) {
	query := selectCampaign + `
		WHERE paid = TRUE
		  AND paid_at < $1
		  AND NOT EXISTS (SELECT 1 FROM participants p WHERE p.campaign_id = campaigns.id)
		ORDER BY paid_at
		LIMIT $2`

	return s.list(ctx, query, cutoff, limit)
}

func (s *CampaignStore) list(ctx context.Context, query string, args ...interface{}) ([]*campaign.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*campaign.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

const selectCampaign = `
	SELECT id, reference_code, title, coordinator_name, coordinator_email, unit_amount_kobo, amount_kobo, status, sheet_url, row_count, paid, provider_ref, paid_at, created_at
	FROM campaigns`

func scanCampaign(row rowScanner) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var paidAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.ReferenceCode,
		&c.Title,
		&c.CoordinatorName,
		&c.CoordinatorEmail,
		&c.UnitAmountKobo,
		&c.AmountKobo,
		&c.Status,
		&c.SheetURL,
		&c.RowCount,
		&c.Paid,
		&c.ProviderRef,
		&paidAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		c.PaidAt = &paidAt.Time
	}
	return &c, nil
}

func guardRows(res sql.Result, sentinel error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel
	}
	return nil
}
