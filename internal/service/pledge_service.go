package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundrail/fundrail/internal/domain"
)

// AcceptPledgeInput carries one pledge request. Amount is in display units
// (e.g. 25.50 USDC); conversion to atomic units happens here, before any
// validation against stored minimums.
type AcceptPledgeInput struct {
	CampaignID string
	TierID     *string
	Amount     float64
	BackerID   string
	TxRef      string
}

// PledgeService validates and commits pledges. Every validation failure
// happens before any write; the commit itself is a single transaction in
// the pledge store, so a rejected or failed pledge leaves no trace.
type PledgeService struct {
	campaigns       domain.CampaignStore
	tiers           domain.TierStore
	pledges         domain.PledgeStore
	cache           domain.CampaignCache
	bus             domain.SignalBus
	audit           domain.AuditStore
	minContribution int64
	logger          *slog.Logger

	now func() time.Time
}

// NewPledgeService creates a PledgeService. minContribution is the
// platform-wide floor in atomic USDC units, used when a campaign does not
// set its own.
func NewPledgeService(
	campaigns domain.CampaignStore,
	tiers domain.TierStore,
	pledges domain.PledgeStore,
	cache domain.CampaignCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	minContribution int64,
	logger *slog.Logger,
) *PledgeService {
	if minContribution <= 0 {
		minContribution = domain.DefaultMinContribution
	}
	return &PledgeService{
		campaigns:       campaigns,
		tiers:           tiers,
		pledges:         pledges,
		cache:           cache,
		bus:             bus,
		audit:           audit,
		minContribution: minContribution,
		logger:          logger.With(slog.String("component", "pledge_service")),
		now:             time.Now,
	}
}

// AcceptPledge runs the fail-fast validation sequence and commits the
// pledge. The tier capacity seen during validation is advisory only: the
// store's conditional minted increment decides at commit time, so two
// racing pledges on a tier's last slot cannot both succeed.
func (s *PledgeService) AcceptPledge(ctx context.Context, in AcceptPledgeInput) (domain.Pledge, error) {
	now := s.now().UTC()

	c, err := s.campaigns.GetByID(ctx, in.CampaignID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: get campaign %q: %w", in.CampaignID, err)
	}

	if c.Status != domain.CampaignStatusActive {
		return domain.Pledge{}, fmt.Errorf("pledge_service: campaign %q status %s: %w", c.ID, c.Status, domain.ErrCampaignNotActive)
	}
	if c.Deadline != nil && now.After(*c.Deadline) {
		return domain.Pledge{}, fmt.Errorf("pledge_service: campaign %q deadline passed: %w", c.ID, domain.ErrCampaignEnded)
	}

	amount := domain.ToAtomic(in.Amount)
	minimum := c.MinContribution
	if minimum <= 0 {
		minimum = s.minContribution
	}
	if amount < minimum {
		return domain.Pledge{}, fmt.Errorf("pledge_service: campaign %q: %w", c.ID, &domain.BelowMinimumError{Minimum: minimum})
	}

	if in.TierID != nil {
		if err := s.validateTier(ctx, c.ID, *in.TierID, now); err != nil {
			return domain.Pledge{}, err
		}
	}

	pledge := domain.Pledge{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		TierID:     in.TierID,
		Amount:     amount,
		Currency:   "USDC",
		BackerID:   in.BackerID,
		TxRef:      in.TxRef,
		Status:     domain.PledgeStatusPending,
		CreatedAt:  now,
	}

	created, err := s.pledges.CreatePending(ctx, pledge)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: create pledge: %w", err)
	}

	if cacheErr := s.cache.Invalidate(ctx, c.ID); cacheErr != nil {
		s.logger.WarnContext(ctx, "pledge_service: cache invalidate failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", cacheErr.Error()),
		)
	}

	evt, _ := json.Marshal(domain.PledgeAcceptedEvent{
		PledgeID:   created.ID,
		CampaignID: created.CampaignID,
		TierID:     created.TierID,
		Amount:     created.Amount,
		BackerID:   created.BackerID,
		CreatedAt:  created.CreatedAt,
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelPledges, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "pledge_service: publish event failed",
			slog.String("pledge_id", created.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "pledge_accepted", map[string]any{
		"pledge_id":   created.ID,
		"campaign_id": created.CampaignID,
		"tier_id":     created.TierID,
		"amount":      created.Amount,
		"backer_id":   created.BackerID,
		"tx_ref":      created.TxRef,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "pledge_service: audit log failed",
			slog.String("pledge_id", created.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "pledge_service: pledge accepted",
		slog.String("pledge_id", created.ID),
		slog.String("campaign_id", created.CampaignID),
		slog.Int64("amount", created.Amount),
	)

	return created, nil
}

// validateTier runs the tier eligibility checks. The capacity check here is
// an early rejection for obviously sold-out tiers; the binding check is the
// conditional increment inside CreatePending.
func (s *PledgeService) validateTier(ctx context.Context, campaignID, tierID string, now time.Time) error {
	t, err := s.tiers.GetByID(ctx, tierID)
	if err != nil {
		return fmt.Errorf("pledge_service: get tier %q: %w", tierID, err)
	}
	if t.CampaignID != campaignID {
		return fmt.Errorf("pledge_service: tier %q not on campaign %q: %w", tierID, campaignID, domain.ErrTierNotFound)
	}
	if !t.Active {
		return fmt.Errorf("pledge_service: tier %q: %w", tierID, domain.ErrTierInactive)
	}
	if t.StartsAt != nil && now.Before(*t.StartsAt) {
		return fmt.Errorf("pledge_service: tier %q: %w", tierID, domain.ErrTierNotYetAvailable)
	}
	if t.EndsAt != nil && now.After(*t.EndsAt) {
		return fmt.Errorf("pledge_service: tier %q: %w", tierID, domain.ErrTierExpired)
	}
	if t.SoldOut() {
		return fmt.Errorf("pledge_service: tier %q: %w", tierID, &domain.TierSoldOutError{Cap: *t.MaxBackers})
	}
	return nil
}

// GetPledge retrieves a single pledge by id.
func (s *PledgeService) GetPledge(ctx context.Context, id string) (domain.Pledge, error) {
	p, err := s.pledges.GetByID(ctx, id)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: get pledge %q: %w", id, err)
	}
	return p, nil
}

// ListByCampaign returns a campaign's pledges with pagination.
func (s *PledgeService) ListByCampaign(ctx context.Context, campaignID string, opts domain.ListOpts) ([]domain.Pledge, error) {
	pledges, err := s.pledges.ListByCampaign(ctx, campaignID, opts)
	if err != nil {
		return nil, fmt.Errorf("pledge_service: list by campaign %q: %w", campaignID, err)
	}
	return pledges, nil
}

// ListByBacker returns a backer's pledges with pagination.
func (s *PledgeService) ListByBacker(ctx context.Context, backerID string, opts domain.ListOpts) ([]domain.Pledge, error) {
	pledges, err := s.pledges.ListByBacker(ctx, backerID, opts)
	if err != nil {
		return nil, fmt.Errorf("pledge_service: list by backer %q: %w", backerID, err)
	}
	return pledges, nil
}
