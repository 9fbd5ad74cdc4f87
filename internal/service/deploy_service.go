package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
)

// DeployService binds freshly deployed escrow campaigns to their draft
// rows. The bind is a conditional update in the store: binding the same
// ledger id twice is a no-op, a different id fails with ErrAlreadyBound.
type DeployService struct {
	campaigns domain.CampaignStore
	cache     domain.CampaignCache
	ledger    domain.LedgerReader
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger

	now func() time.Time
}

// NewDeployService creates a DeployService with all required dependencies.
func NewDeployService(
	campaigns domain.CampaignStore,
	cache domain.CampaignCache,
	ledger domain.LedgerReader,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *DeployService {
	return &DeployService{
		campaigns: campaigns,
		cache:     cache,
		ledger:    ledger,
		bus:       bus,
		audit:     audit,
		logger:    logger.With(slog.String("component", "deploy_service")),
		now:       time.Now,
	}
}

// BindDeployment records the ledger campaign id on a draft and activates
// it. After the bind commits, the escrow record is read back and compared
// against the draft as a consistency check; mismatches are logged, never
// fatal, because the ledger is authoritative and the next sync reconciles.
func (s *DeployService) BindDeployment(ctx context.Context, draftID string, ledgerCampaignID int64, txRef string) (domain.Campaign, error) {
	c, err := s.campaigns.BindDeployment(ctx, draftID, ledgerCampaignID, txRef)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("deploy_service: bind %q to ledger campaign %d: %w", draftID, ledgerCampaignID, err)
	}

	s.verifyAgainstLedger(ctx, c, ledgerCampaignID)

	if cacheErr := s.cache.Invalidate(ctx, c.ID); cacheErr != nil {
		s.logger.WarnContext(ctx, "deploy_service: cache invalidate failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", cacheErr.Error()),
		)
	}

	evt, _ := json.Marshal(domain.CampaignSyncedEvent{
		CampaignID:   c.ID,
		Status:       c.Status,
		RaisedAmount: c.RaisedAmount,
		Terminal:     false,
		SyncedAt:     s.now().UTC(),
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelCampaigns, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "deploy_service: publish event failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "campaign_deployed", map[string]any{
		"campaign_id":        c.ID,
		"ledger_campaign_id": ledgerCampaignID,
		"creation_tx_ref":    txRef,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "deploy_service: audit log failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "deploy_service: campaign bound",
		slog.String("campaign_id", c.ID),
		slog.Int64("ledger_campaign_id", ledgerCampaignID),
		slog.String("tx_ref", txRef),
	)

	return c, nil
}

// verifyAgainstLedger compares the bound draft with the escrow record.
// Best effort: an unreadable ledger is not a bind failure.
func (s *DeployService) verifyAgainstLedger(ctx context.Context, c domain.Campaign, ledgerCampaignID int64) {
	rec, err := s.ledger.GetCampaign(ctx, ledgerCampaignID)
	if err != nil {
		s.logger.WarnContext(ctx, "deploy_service: post-bind ledger read failed",
			slog.String("campaign_id", c.ID),
			slog.Int64("ledger_campaign_id", ledgerCampaignID),
			slog.String("error", err.Error()),
		)
		return
	}

	if !strings.EqualFold(rec.Creator, c.CreatorAddress) {
		s.logger.WarnContext(ctx, "deploy_service: creator mismatch",
			slog.String("campaign_id", c.ID),
			slog.String("draft_creator", c.CreatorAddress),
			slog.String("ledger_creator", rec.Creator),
		)
	}
	if rec.Goal != nil && rec.Goal.IsInt64() && rec.Goal.Int64() != c.GoalAmount {
		s.logger.WarnContext(ctx, "deploy_service: goal mismatch",
			slog.String("campaign_id", c.ID),
			slog.Int64("draft_goal", c.GoalAmount),
			slog.Int64("ledger_goal", rec.Goal.Int64()),
		)
	}
}
