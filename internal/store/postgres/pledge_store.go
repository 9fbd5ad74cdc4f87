package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundrail/fundrail/internal/domain"
)

// PledgeStore implements domain.PledgeStore using PostgreSQL.
type PledgeStore struct {
	pool *pgxpool.Pool
}

// NewPledgeStore creates a new PledgeStore backed by the given connection
// pool.
func NewPledgeStore(pool *pgxpool.Pool) *PledgeStore {
	return &PledgeStore{pool: pool}
}

const pledgeCols = `id, campaign_id, tier_id, amount, currency, backer_id, tx_ref, status, created_at`

// scanPledge scans a single pledge row into a domain.Pledge.
func scanPledge(row pgx.Row) (domain.Pledge, error) {
	var p domain.Pledge
	var status string
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.TierID, &p.Amount, &p.Currency,
		&p.BackerID, &p.TxRef, &status, &p.CreatedAt,
	)
	if err != nil {
		return domain.Pledge{}, err
	}
	p.Status = domain.PledgeStatus(status)
	return p, nil
}

// CreatePending commits a pledge in one transaction: the tier's conditional
// minted increment, the campaign's raised-amount mirror, and the pledge row
// itself all land together or not at all.
//
// The tier increment is guarded by "minted < max_backers" inside the
// UPDATE, so capacity is serialized by the database rather than by a read
// that could go stale between check and commit. Zero affected rows means
// the last slot went to a concurrent pledge; the whole transaction rolls
// back and the caller sees ErrTierSoldOut.
func (s *PledgeStore) CreatePending(ctx context.Context, p domain.Pledge) (domain.Pledge, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("postgres: begin pledge tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if p.TierID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE tiers
			SET minted = minted + 1, updated_at = NOW()
			WHERE id::text = $1
			  AND (max_backers IS NULL OR minted < max_backers)`,
			*p.TierID)
		if err != nil {
			return domain.Pledge{}, fmt.Errorf("postgres: increment tier %s: %w", *p.TierID, err)
		}
		if tag.RowsAffected() == 0 {
			// Either the tier vanished or the cap was reached by a
			// concurrent pledge. Distinguish for the caller.
			var maxBackers *int
			err := tx.QueryRow(ctx,
				`SELECT max_backers FROM tiers WHERE id::text = $1`, *p.TierID).Scan(&maxBackers)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.Pledge{}, domain.ErrTierNotFound
				}
				return domain.Pledge{}, fmt.Errorf("postgres: read tier %s: %w", *p.TierID, err)
			}
			soldOut := &domain.TierSoldOutError{}
			if maxBackers != nil {
				soldOut.Cap = *maxBackers
			}
			return domain.Pledge{}, soldOut
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE campaigns
		SET raised_amount = raised_amount + $1, updated_at = NOW()
		WHERE id::text = $2`,
		p.Amount, p.CampaignID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("postgres: mirror raised amount for campaign %s: %w", p.CampaignID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Pledge{}, domain.ErrNotFound
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO pledges (
			id, campaign_id, tier_id, amount, currency,
			backer_id, tx_ref, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING `+pledgeCols,
		p.ID, p.CampaignID, p.TierID, p.Amount, p.Currency,
		p.BackerID, p.TxRef, string(domain.PledgeStatusPending),
	)
	created, err := scanPledge(row)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("postgres: insert pledge %s: %w", p.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Pledge{}, fmt.Errorf("postgres: commit pledge %s: %w", p.ID, err)
	}
	return created, nil
}

// GetByID retrieves a pledge by its primary key.
func (s *PledgeStore) GetByID(ctx context.Context, id string) (domain.Pledge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pledgeCols+` FROM pledges WHERE id::text = $1`, id)
	p, err := scanPledge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pledge{}, domain.ErrNotFound
		}
		return domain.Pledge{}, fmt.Errorf("postgres: get pledge %s: %w", id, err)
	}
	return p, nil
}

// ListByCampaign returns a campaign's pledges, newest first.
func (s *PledgeStore) ListByCampaign(ctx context.Context, campaignID string, opts domain.ListOpts) ([]domain.Pledge, error) {
	return s.list(ctx, `campaign_id::text = $1`, campaignID, opts)
}

// ListByBacker returns a backer's pledges, newest first.
func (s *PledgeStore) ListByBacker(ctx context.Context, backerID string, opts domain.ListOpts) ([]domain.Pledge, error) {
	return s.list(ctx, `backer_id = $1`, backerID, opts)
}

func (s *PledgeStore) list(ctx context.Context, where string, arg string, opts domain.ListOpts) ([]domain.Pledge, error) {
	query := `SELECT ` + pledgeCols + ` FROM pledges WHERE ` + where + ` ORDER BY created_at DESC`
	args := []any{arg}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pledges: %w", err)
	}
	defer rows.Close()

	var pledges []domain.Pledge
	for rows.Next() {
		p, err := scanPledge(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pledge: %w", err)
		}
		pledges = append(pledges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: pledge rows: %w", err)
	}
	return pledges, nil
}

// Compile-time interface check.
var _ domain.PledgeStore = (*PledgeStore)(nil)
