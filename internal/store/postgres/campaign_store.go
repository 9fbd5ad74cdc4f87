package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundrail/fundrail/internal/domain"
)

// CampaignStore implements domain.CampaignStore using PostgreSQL.
type CampaignStore struct {
	pool *pgxpool.Pool
}

// NewCampaignStore creates a new CampaignStore backed by the given
// connection pool.
func NewCampaignStore(pool *pgxpool.Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

const campaignCols = `id, ledger_campaign_id, creator_address, title, description, story,
	category, tags, cover_image, gallery, goal_amount, raised_amount,
	min_contribution, duration_days, start_date, deadline, status,
	finalized_at, refund_available, creation_tx_ref, created_at, updated_at`

// scanCampaign scans a single campaign row into a domain.Campaign.
func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var c domain.Campaign
	var status string
	err := row.Scan(
		&c.ID, &c.LedgerCampaignID, &c.CreatorAddress, &c.Title, &c.Description, &c.Story,
		&c.Category, &c.Tags, &c.CoverImage, &c.Gallery, &c.GoalAmount, &c.RaisedAmount,
		&c.MinContribution, &c.DurationDays, &c.StartDate, &c.Deadline, &status,
		&c.FinalizedAt, &c.RefundAvailable, &c.CreationTxRef, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Campaign{}, err
	}
	c.Status = domain.CampaignStatus(status)
	return c, nil
}

// Create inserts a new draft campaign.
func (s *CampaignStore) Create(ctx context.Context, c domain.Campaign) error {
	const query = `
		INSERT INTO campaigns (
			id, creator_address, title, description, story,
			category, tags, cover_image, gallery,
			goal_amount, min_contribution, duration_days, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.CreatorAddress, c.Title, c.Description, c.Story,
		c.Category, c.Tags, c.CoverImage, c.Gallery,
		c.GoalAmount, c.MinContribution, c.DurationDays, string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: create campaign %s: %w", c.ID, err)
	}
	return nil
}

// GetByID retrieves a campaign by its off-ledger id.
func (s *CampaignStore) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+campaignCols+` FROM campaigns WHERE id::text = $1`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, domain.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("postgres: get campaign %s: %w", id, err)
	}
	return c, nil
}

// GetByLedgerID retrieves a campaign by its escrow campaign id.
func (s *CampaignStore) GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (domain.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+campaignCols+` FROM campaigns WHERE ledger_campaign_id = $1`, ledgerCampaignID)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, domain.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("postgres: get campaign by ledger id %d: %w", ledgerCampaignID, err)
	}
	return c, nil
}

// List returns campaigns matching the filter, newest first.
func (s *CampaignStore) List(ctx context.Context, filter domain.CampaignFilter, opts domain.ListOpts) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignCols + ` FROM campaigns`
	where, args := filterClauses(filter)
	if len(where) > 0 {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC"

	argIdx := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// Count returns the number of campaigns matching the filter.
func (s *CampaignStore) Count(ctx context.Context, filter domain.CampaignFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM campaigns`
	where, args := filterClauses(filter)
	if len(where) > 0 {
		query += " WHERE " + where
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count campaigns: %w", err)
	}
	return count, nil
}

// filterClauses builds the WHERE clause body and args for a CampaignFilter.
func filterClauses(filter domain.CampaignFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		clauses = append(clauses, fmt.Sprintf("creator_address = $%d", len(args)))
	}

	switch len(clauses) {
	case 0:
		return "", args
	case 1:
		return clauses[0], args
	default:
		joined := clauses[0]
		for _, c := range clauses[1:] {
			joined += " AND " + c
		}
		return joined, args
	}
}

// ListUnresolved returns deployed campaigns that have not reached a terminal
// state: the reconciliation worker's work queue.
func (s *CampaignStore) ListUnresolved(ctx context.Context, opts domain.ListOpts) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignCols + ` FROM campaigns
		WHERE ledger_campaign_id IS NOT NULL
		  AND status IN ('ACTIVE', 'ENDED')
		ORDER BY deadline ASC NULLS LAST`

	args := []any{}
	if opts.Limit > 0 {
		query += " LIMIT $1"
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unresolved campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

func collectCampaigns(rows pgx.Rows) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: campaign rows: %w", err)
	}
	return campaigns, nil
}

// BindDeployment records the escrow campaign id on a draft and activates
// it. The update is conditional on the ledger id still being unset, so a
// retried bind never overwrites an earlier one: rebinding the same id is a
// no-op returning the bound row, a different id fails with ErrAlreadyBound.
func (s *CampaignStore) BindDeployment(ctx context.Context, draftID string, ledgerCampaignID int64, txRef string) (domain.Campaign, error) {
	const query = `
		UPDATE campaigns
		SET ledger_campaign_id = $2,
			creation_tx_ref = $3,
			status = 'ACTIVE',
			start_date = NOW(),
			deadline = NOW() + make_interval(days => duration_days),
			updated_at = NOW()
		WHERE id::text = $1
		  AND ledger_campaign_id IS NULL
		RETURNING ` + campaignCols

	row := s.pool.QueryRow(ctx, query, draftID, ledgerCampaignID, txRef)
	c, err := scanCampaign(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Campaign{}, fmt.Errorf("postgres: bind campaign %s: %w", draftID, err)
	}

	// Zero rows: either the draft does not exist or it is already bound.
	existing, err := s.GetByID(ctx, draftID)
	if err != nil {
		return domain.Campaign{}, err
	}
	if existing.LedgerCampaignID != nil && *existing.LedgerCampaignID == ledgerCampaignID {
		// Retried bind with the identical ledger id: idempotent.
		return existing, nil
	}
	return domain.Campaign{}, fmt.Errorf("postgres: bind campaign %s to ledger id %d: %w",
		draftID, ledgerCampaignID, domain.ErrAlreadyBound)
}

// ApplyResolution writes a resolved status as one conditional update.
// Rows already in a terminal state are never touched; re-applying anything
// over SUCCESSFUL/FAILED reports Updated=false with the stored status, so
// out-of-order sync calls commute to the same final state.
func (s *CampaignStore) ApplyResolution(ctx context.Context, ref domain.CampaignRef, status domain.CampaignStatus, rec domain.CampaignRecord) (domain.SyncResult, error) {
	terminal := status.IsTerminal()

	const query = `
		UPDATE campaigns
		SET status = $1,
			raised_amount = CASE WHEN $2 THEN $3::bigint ELSE raised_amount END,
			finalized_at = CASE WHEN $2 THEN NOW() ELSE finalized_at END,
			refund_available = CASE WHEN $2 THEN $4 ELSE refund_available END,
			updated_at = NOW()
		WHERE (($5::bigint IS NOT NULL AND ledger_campaign_id = $5) OR id::text = $6)
		  AND status NOT IN ('SUCCESSFUL', 'FAILED')
		RETURNING status, raised_amount`

	var (
		gotStatus string
		gotRaised int64
	)
	err := s.pool.QueryRow(ctx, query,
		string(status), terminal, rec.TotalPledgedAtomic(),
		status == domain.CampaignStatusFailed,
		ref.LedgerCampaignID, ref.ID,
	).Scan(&gotStatus, &gotRaised)
	if err == nil {
		return domain.SyncResult{
			Updated:      true,
			Status:       domain.CampaignStatus(gotStatus),
			RaisedAmount: gotRaised,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.SyncResult{}, fmt.Errorf("postgres: apply resolution %s: %w", ref.ID, err)
	}

	// Zero rows: the campaign is missing or already terminal. Re-read to
	// distinguish and report the authoritative stored state.
	const readQuery = `
		SELECT status, raised_amount FROM campaigns
		WHERE ($1::bigint IS NOT NULL AND ledger_campaign_id = $1) OR id::text = $2`

	err = s.pool.QueryRow(ctx, readQuery, ref.LedgerCampaignID, ref.ID).Scan(&gotStatus, &gotRaised)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncResult{}, domain.ErrNotFound
		}
		return domain.SyncResult{}, fmt.Errorf("postgres: read resolution %s: %w", ref.ID, err)
	}

	return domain.SyncResult{
		Updated:      false,
		Status:       domain.CampaignStatus(gotStatus),
		RaisedAmount: gotRaised,
	}, nil
}

// Compile-time interface check.
var _ domain.CampaignStore = (*CampaignStore)(nil)
