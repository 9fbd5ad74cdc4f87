package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
)

// SyncService reconciles cached campaign rows against the settlement
// ledger: read the escrow record, resolve the canonical status, apply it
// with the store's monotonic conditional write. Correctness comes from the
// write, not from locking; the per-campaign lock only stops overlapping
// workers from issuing redundant chain reads.
type SyncService struct {
	campaigns domain.CampaignStore
	cache     domain.CampaignCache
	ledger    domain.LedgerReader
	locks     domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	interval  time.Duration
	lockTTL   time.Duration
	batchSize int
	logger    *slog.Logger

	now func() time.Time
}

// NewSyncService creates a SyncService with all required dependencies.
// interval and lockTTL govern the periodic worker; batchSize is the number
// of unresolved campaigns fetched per pass.
func NewSyncService(
	campaigns domain.CampaignStore,
	cache domain.CampaignCache,
	ledger domain.LedgerReader,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	interval time.Duration,
	lockTTL time.Duration,
	batchSize int,
	logger *slog.Logger,
) *SyncService {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncService{
		campaigns: campaigns,
		cache:     cache,
		ledger:    ledger,
		locks:     locks,
		bus:       bus,
		audit:     audit,
		interval:  interval,
		lockTTL:   lockTTL,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "sync_service")),
		now:       time.Now,
	}
}

// Reconcile reads the escrow record for one campaign, resolves its status,
// and applies the result to the cache row. A failed chain read touches
// nothing. The ref may carry either the off-ledger id or the ledger
// campaign id; an undeployed campaign returns ErrNotDeployed.
func (s *SyncService) Reconcile(ctx context.Context, ref domain.CampaignRef) (domain.SyncResult, error) {
	c, err := s.resolveCampaign(ctx, ref)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if !c.Deployed() {
		return domain.SyncResult{}, fmt.Errorf("sync_service: campaign %q: %w", c.ID, domain.ErrNotDeployed)
	}

	rec, err := s.ledger.GetCampaign(ctx, *c.LedgerCampaignID)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync_service: read ledger campaign %d: %w", *c.LedgerCampaignID, err)
	}

	status := domain.ResolveStatus(rec, s.now().UTC())

	res, err := s.campaigns.ApplyResolution(ctx, domain.CampaignRef{
		ID:               c.ID,
		LedgerCampaignID: c.LedgerCampaignID,
	}, status, rec)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync_service: apply resolution for %q: %w", c.ID, err)
	}

	if !res.Updated {
		if res.Status.IsTerminal() && status.IsTerminal() && res.Status != status {
			// The escrow finalizes exactly once, so two disagreeing
			// terminal outcomes indicate corruption somewhere. Keep the
			// stored one and make noise.
			s.logger.WarnContext(ctx, "sync_service: terminal status disagreement",
				slog.String("campaign_id", c.ID),
				slog.String("stored", string(res.Status)),
				slog.String("resolved", string(status)),
			)
		}
		return res, nil
	}

	if cacheErr := s.cache.Invalidate(ctx, c.ID); cacheErr != nil {
		s.logger.WarnContext(ctx, "sync_service: cache invalidate failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", cacheErr.Error()),
		)
	}

	evt, _ := json.Marshal(domain.CampaignSyncedEvent{
		CampaignID:   c.ID,
		Status:       res.Status,
		RaisedAmount: res.RaisedAmount,
		Terminal:     res.Status.IsTerminal(),
		SyncedAt:     s.now().UTC(),
	})
	if pubErr := s.bus.Publish(ctx, domain.ChannelCampaigns, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "sync_service: publish event failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", pubErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "campaign_synced", map[string]any{
		"campaign_id":        c.ID,
		"ledger_campaign_id": *c.LedgerCampaignID,
		"from_status":        string(c.Status),
		"to_status":          string(res.Status),
		"raised_amount":      res.RaisedAmount,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "sync_service: audit log failed",
			slog.String("campaign_id", c.ID),
			slog.String("error", auditErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "sync_service: campaign reconciled",
		slog.String("campaign_id", c.ID),
		slog.Int64("ledger_campaign_id", *c.LedgerCampaignID),
		slog.String("status", string(res.Status)),
		slog.Int64("raised_amount", res.RaisedAmount),
	)

	return res, nil
}

// RunPeriodic reconciles every unresolved deployed campaign on a fixed
// interval until the context is cancelled. Call in a goroutine.
func (s *SyncService) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sync_service: periodic worker started",
		slog.Duration("interval", s.interval),
		slog.Int("batch_size", s.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.syncPass(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sync_service: pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// syncPass reconciles one batch of unresolved campaigns. Campaigns locked
// by another worker are skipped; their monotonic write makes the skip safe.
func (s *SyncService) syncPass(ctx context.Context) error {
	unresolved, err := s.campaigns.ListUnresolved(ctx, domain.ListOpts{Limit: s.batchSize})
	if err != nil {
		return fmt.Errorf("sync_service: list unresolved: %w", err)
	}

	var synced, skipped, failed int
	for _, c := range unresolved {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		unlock, err := s.locks.Acquire(ctx, "sync:campaign:"+c.ID, s.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				skipped++
				continue
			}
			s.logger.WarnContext(ctx, "sync_service: lock acquire failed",
				slog.String("campaign_id", c.ID),
				slog.String("error", err.Error()),
			)
			failed++
			continue
		}

		if _, err := s.Reconcile(ctx, domain.CampaignRef{ID: c.ID, LedgerCampaignID: c.LedgerCampaignID}); err != nil {
			s.logger.ErrorContext(ctx, "sync_service: reconcile failed",
				slog.String("campaign_id", c.ID),
				slog.String("error", err.Error()),
			)
			failed++
		} else {
			synced++
		}
		unlock()
	}

	s.logger.InfoContext(ctx, "sync_service: pass complete",
		slog.Int("candidates", len(unresolved)),
		slog.Int("synced", synced),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)

	return nil
}

// resolveCampaign loads the campaign row for a ref, preferring the ledger
// campaign id when present.
func (s *SyncService) resolveCampaign(ctx context.Context, ref domain.CampaignRef) (domain.Campaign, error) {
	if ref.LedgerCampaignID != nil {
		c, err := s.campaigns.GetByLedgerID(ctx, *ref.LedgerCampaignID)
		if err != nil {
			return domain.Campaign{}, fmt.Errorf("sync_service: get by ledger id %d: %w", *ref.LedgerCampaignID, err)
		}
		return c, nil
	}
	if ref.ID == "" {
		return domain.Campaign{}, fmt.Errorf("sync_service: empty campaign ref: %w", domain.ErrNotFound)
	}
	c, err := s.campaigns.GetByID(ctx, ref.ID)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("sync_service: get by id %q: %w", ref.ID, err)
	}
	return c, nil
}
