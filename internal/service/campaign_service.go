package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundrail/fundrail/internal/domain"
)

// TierInput describes one reward tier on a draft. Amount is display units.
type TierInput struct {
	Title      string
	Rewards    string
	Amount     float64
	MaxBackers *int
	StartsAt   *time.Time
	EndsAt     *time.Time
}

// CreateDraftInput carries a new off-ledger campaign. Money fields are
// display units; MinContribution of zero falls back to the platform floor.
type CreateDraftInput struct {
	CreatorAddress  string
	Title           string
	Description     string
	Story           string
	Category        string
	Tags            []string
	CoverImage      string
	Gallery         []string
	Goal            float64
	MinContribution float64
	DurationDays    int
	Tiers           []TierInput
}

// CampaignService handles draft creation and campaign reads. Reads are
// cache-aside: Redis first, store on a miss, back-fill after.
type CampaignService struct {
	campaigns       domain.CampaignStore
	tiers           domain.TierStore
	cache           domain.CampaignCache
	audit           domain.AuditStore
	minContribution int64
	logger          *slog.Logger

	now func() time.Time
}

// NewCampaignService creates a CampaignService with all required
// dependencies.
func NewCampaignService(
	campaigns domain.CampaignStore,
	tiers domain.TierStore,
	cache domain.CampaignCache,
	audit domain.AuditStore,
	minContribution int64,
	logger *slog.Logger,
) *CampaignService {
	if minContribution <= 0 {
		minContribution = domain.DefaultMinContribution
	}
	return &CampaignService{
		campaigns:       campaigns,
		tiers:           tiers,
		cache:           cache,
		audit:           audit,
		minContribution: minContribution,
		logger:          logger.With(slog.String("component", "campaign_service")),
		now:             time.Now,
	}
}

// CreateDraft persists a new DRAFT campaign and its tiers. The draft holds
// no ledger binding; deployment binds it later and sets the clock fields.
func (s *CampaignService) CreateDraft(ctx context.Context, in CreateDraftInput) (domain.Campaign, error) {
	if in.Title == "" {
		return domain.Campaign{}, fmt.Errorf("campaign_service: title is required")
	}
	if in.Goal <= 0 {
		return domain.Campaign{}, fmt.Errorf("campaign_service: goal must be positive")
	}
	if in.DurationDays <= 0 {
		return domain.Campaign{}, fmt.Errorf("campaign_service: duration_days must be positive")
	}

	now := s.now().UTC()

	minContribution := domain.ToAtomic(in.MinContribution)
	if minContribution <= 0 {
		minContribution = s.minContribution
	}

	c := domain.Campaign{
		ID:              uuid.NewString(),
		CreatorAddress:  in.CreatorAddress,
		Title:           in.Title,
		Description:     in.Description,
		Story:           in.Story,
		Category:        in.Category,
		Tags:            in.Tags,
		CoverImage:      in.CoverImage,
		Gallery:         in.Gallery,
		GoalAmount:      domain.ToAtomic(in.Goal),
		MinContribution: minContribution,
		DurationDays:    in.DurationDays,
		Status:          domain.CampaignStatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.campaigns.Create(ctx, c); err != nil {
		return domain.Campaign{}, fmt.Errorf("campaign_service: create draft: %w", err)
	}

	if len(in.Tiers) > 0 {
		tiers := make([]domain.Tier, 0, len(in.Tiers))
		for _, t := range in.Tiers {
			tiers = append(tiers, domain.Tier{
				ID:         uuid.NewString(),
				CampaignID: c.ID,
				Title:      t.Title,
				Rewards:    t.Rewards,
				Amount:     domain.ToAtomic(t.Amount),
				MaxBackers: t.MaxBackers,
				Active:     true,
				StartsAt:   t.StartsAt,
				EndsAt:     t.EndsAt,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		if err := s.tiers.CreateBatch(ctx, tiers); err != nil {
			return domain.Campaign{}, fmt.Errorf("campaign_service: create tiers: %w", err)
		}
	}

	if auditErr := s.audit.Log(ctx, "campaign_drafted", map[string]any{
		"campaign_id": c.ID,
		"creator":     c.CreatorAddress,
		"goal":        c.GoalAmount,
		"tiers":       len(in.Tiers),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "campaign_service: audit log failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign_service: draft created",
		slog.String("campaign_id", c.ID),
		slog.String("creator", c.CreatorAddress),
		slog.Int64("goal", c.GoalAmount),
		slog.Int("tiers", len(in.Tiers)),
	)

	return c, nil
}

// Get retrieves a campaign by off-ledger id, checking the cache first and
// falling back to the store on a miss.
func (s *CampaignService) Get(ctx context.Context, id string) (domain.Campaign, error) {
	c, err := s.cache.Get(ctx, id)
	if err == nil {
		return c, nil
	}

	c, err = s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("campaign_service: get by id %q: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, c); cacheErr != nil {
		s.logger.WarnContext(ctx, "campaign_service: cache set failed",
			slog.String("campaign_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return c, nil
}

// GetByLedgerID retrieves a campaign by its escrow campaign id, checking
// the cache's ledger-id index first.
func (s *CampaignService) GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (domain.Campaign, error) {
	c, err := s.cache.GetByLedgerID(ctx, ledgerCampaignID)
	if err == nil {
		return c, nil
	}

	c, err = s.campaigns.GetByLedgerID(ctx, ledgerCampaignID)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("campaign_service: get by ledger id %d: %w", ledgerCampaignID, err)
	}

	if cacheErr := s.cache.Set(ctx, c); cacheErr != nil {
		s.logger.WarnContext(ctx, "campaign_service: cache set failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", cacheErr.Error()),
		)
	}

	return c, nil
}

// List returns campaigns matching the filter, straight from the store.
func (s *CampaignService) List(ctx context.Context, filter domain.CampaignFilter, opts domain.ListOpts) ([]domain.Campaign, error) {
	campaigns, err := s.campaigns.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("campaign_service: list: %w", err)
	}
	return campaigns, nil
}

// Count returns the number of campaigns matching the filter.
func (s *CampaignService) Count(ctx context.Context, filter domain.CampaignFilter) (int64, error) {
	count, err := s.campaigns.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("campaign_service: count: %w", err)
	}
	return count, nil
}

// ListTiers returns a campaign's reward tiers ordered by price.
func (s *CampaignService) ListTiers(ctx context.Context, campaignID string) ([]domain.Tier, error) {
	tiers, err := s.tiers.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign_service: list tiers for %q: %w", campaignID, err)
	}
	return tiers, nil
}
