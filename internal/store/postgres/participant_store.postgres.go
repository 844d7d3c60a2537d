package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
)

// ParticipantStore implements campaign.ParticipantStore. Inserts are
// conflict-free on (campaign_id, row_no), which is what makes roster
// materialization safe to re-run.
type ParticipantStore struct {
	db *sql.DB
}

func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) CreateParticipant(ctx context.Context, p *campaign.Participant) (bool, error) {
	query := `
		INSERT INTO participants (id, campaign_id, row_no, full_name, size, coupon_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (campaign_id, row_no) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.CampaignID,
		p.RowNo,
		p.FullName,
		p.Size,
		p.CouponCode,
		p.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert participant: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *ParticipantStore) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE campaign_id = $1`,
		campaignID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}
