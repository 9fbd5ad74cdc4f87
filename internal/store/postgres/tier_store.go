package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundrail/fundrail/internal/domain"
)

// TierStore implements domain.TierStore using PostgreSQL.
type TierStore struct {
	pool *pgxpool.Pool
}

// NewTierStore creates a new TierStore backed by the given connection pool.
func NewTierStore(pool *pgxpool.Pool) *TierStore {
	return &TierStore{pool: pool}
}

const tierCols = `id, campaign_id, title, rewards, amount, max_backers, minted,
	active, starts_at, ends_at, created_at, updated_at`

// scanTier scans a single tier row into a domain.Tier.
func scanTier(row pgx.Row) (domain.Tier, error) {
	var t domain.Tier
	err := row.Scan(
		&t.ID, &t.CampaignID, &t.Title, &t.Rewards, &t.Amount, &t.MaxBackers, &t.Minted,
		&t.Active, &t.StartsAt, &t.EndsAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Tier{}, err
	}
	return t, nil
}

// CreateBatch inserts multiple tiers in a single batch operation.
func (s *TierStore) CreateBatch(ctx context.Context, tiers []domain.Tier) error {
	if len(tiers) == 0 {
		return nil
	}

	const query = `
		INSERT INTO tiers (
			id, campaign_id, title, rewards, amount,
			max_backers, active, starts_at, ends_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			NOW(), NOW()
		)`

	batch := &pgx.Batch{}
	for _, t := range tiers {
		batch.Queue(query,
			t.ID, t.CampaignID, t.Title, t.Rewards, t.Amount,
			t.MaxBackers, t.Active, t.StartsAt, t.EndsAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range tiers {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: create tier batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetByID retrieves a tier by its primary key.
func (s *TierStore) GetByID(ctx context.Context, id string) (domain.Tier, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tierCols+` FROM tiers WHERE id::text = $1`, id)
	t, err := scanTier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tier{}, domain.ErrTierNotFound
		}
		return domain.Tier{}, fmt.Errorf("postgres: get tier %s: %w", id, err)
	}
	return t, nil
}

// ListByCampaign returns a campaign's tiers ordered by price.
func (s *TierStore) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Tier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tierCols+` FROM tiers WHERE campaign_id::text = $1 ORDER BY amount ASC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tiers for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var tiers []domain.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: tier rows: %w", err)
	}
	return tiers, nil
}

// Compile-time interface check.
var _ domain.TierStore = (*TierStore)(nil)
