package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundrail/fundrail/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type syncFixture struct {
	campaigns *fakeCampaignStore
	cache     *fakeCache
	ledger    *fakeLedger
	locks     *fakeLocks
	bus       *fakeBus
	audit     *fakeAudit
	svc       *SyncService
}

func newSyncFixture(t *testing.T, campaigns ...domain.Campaign) *syncFixture {
	t.Helper()
	f := &syncFixture{
		campaigns: newFakeCampaignStore(campaigns...),
		cache:     &fakeCache{},
		ledger:    newFakeLedger(),
		locks:     newFakeLocks(),
		bus:       newFakeBus(),
		audit:     &fakeAudit{},
	}
	f.svc = NewSyncService(
		f.campaigns, f.cache, f.ledger, f.locks, f.bus, f.audit,
		time.Minute, 30*time.Second, 100, testLogger(),
	)
	return f
}

func deployedCampaign(id string, ledgerID int64, status domain.CampaignStatus) domain.Campaign {
	return domain.Campaign{
		ID:               id,
		LedgerCampaignID: &ledgerID,
		Status:           status,
		GoalAmount:       1_000_000_000,
	}
}

func TestReconcileSuccessfulOutcome(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusActive))
	f.ledger.records[7] = domain.CampaignRecord{
		Creator:      "0x1111111111111111111111111111111111111111",
		Goal:         big.NewInt(1_000_000_000),
		TotalPledged: big.NewInt(1_200_000_000),
		Deadline:     time.Now().Add(-time.Hour),
		Finalized:    true,
		Successful:   true,
	}

	res, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)

	assert.True(t, res.Updated)
	assert.Equal(t, domain.CampaignStatusSuccessful, res.Status)
	assert.Equal(t, int64(1_200_000_000), res.RaisedAmount)

	stored, _ := f.campaigns.get("c1")
	assert.Equal(t, domain.CampaignStatusSuccessful, stored.Status)
	assert.Equal(t, int64(1_200_000_000), stored.RaisedAmount)
	assert.NotNil(t, stored.FinalizedAt)
	assert.False(t, stored.RefundAvailable)

	assert.Equal(t, []string{"c1"}, f.cache.invalidated)
	assert.Len(t, f.bus.published[domain.ChannelCampaigns], 1)
	assert.Contains(t, f.audit.events, "campaign_synced")
}

func TestReconcileFailedOutcomeEnablesRefund(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusEnded))
	f.ledger.records[7] = domain.CampaignRecord{
		Creator:      "0x1111111111111111111111111111111111111111",
		TotalPledged: big.NewInt(400_000_000),
		Deadline:     time.Now().Add(-time.Hour),
		Finalized:    true,
		Successful:   false,
	}

	res, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignStatusFailed, res.Status)
	stored, _ := f.campaigns.get("c1")
	assert.True(t, stored.RefundAvailable)
}

func TestReconcilePastDeadlineBecomesEnded(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusActive))
	f.ledger.records[7] = domain.CampaignRecord{
		TotalPledged: big.NewInt(100_000_000),
		Deadline:     time.Now().Add(-time.Minute),
	}

	res, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)

	assert.True(t, res.Updated)
	assert.Equal(t, domain.CampaignStatusEnded, res.Status)
	stored, _ := f.campaigns.get("c1")
	// Pre-terminal writes never touch the raised mirror.
	assert.Equal(t, int64(0), stored.RaisedAmount)
	assert.Nil(t, stored.FinalizedAt)
}

func TestReconcileTerminalStatusNeverRegresses(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusActive))
	f.ledger.records[7] = domain.CampaignRecord{
		TotalPledged: big.NewInt(1_200_000_000),
		Deadline:     time.Now().Add(-time.Hour),
		Finalized:    true,
		Successful:   true,
	}

	first, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)
	require.True(t, first.Updated)

	// A stale reader view must not undo the terminal outcome.
	f.ledger.records[7] = domain.CampaignRecord{
		TotalPledged: big.NewInt(1_200_000_000),
		Deadline:     time.Now().Add(time.Hour),
	}

	second, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)
	assert.False(t, second.Updated)
	assert.Equal(t, domain.CampaignStatusSuccessful, second.Status)

	stored, _ := f.campaigns.get("c1")
	assert.Equal(t, domain.CampaignStatusSuccessful, stored.Status)
}

func TestReconcileIdempotentReapplication(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusActive))
	f.ledger.records[7] = domain.CampaignRecord{
		TotalPledged: big.NewInt(500_000_000),
		Deadline:     time.Now().Add(-time.Hour),
		Finalized:    true,
		Successful:   false,
	}

	first, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)
	assert.True(t, first.Updated)

	second, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.NoError(t, err)
	assert.False(t, second.Updated)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.RaisedAmount, second.RaisedAmount)
}

func TestReconcileChainReadFailureTouchesNothing(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 7, domain.CampaignStatusActive))
	f.ledger.err = fmt.Errorf("escrow: call getCampaign(7): %w", domain.ErrChainRead)

	_, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChainRead)

	stored, _ := f.campaigns.get("c1")
	assert.Equal(t, domain.CampaignStatusActive, stored.Status)
	assert.Empty(t, f.cache.invalidated)
	assert.Empty(t, f.bus.published[domain.ChannelCampaigns])
}

func TestReconcileUndeployedCampaign(t *testing.T) {
	f := newSyncFixture(t, domain.Campaign{ID: "c1", Status: domain.CampaignStatusDraft})

	_, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "c1"})
	assert.ErrorIs(t, err, domain.ErrNotDeployed)
}

func TestReconcileUnknownCampaign(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{ID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconcileByLedgerID(t *testing.T) {
	f := newSyncFixture(t, deployedCampaign("c1", 42, domain.CampaignStatusActive))
	f.ledger.records[42] = domain.CampaignRecord{
		TotalPledged: big.NewInt(10_000_000),
		Deadline:     time.Now().Add(time.Hour),
	}

	ledgerID := int64(42)
	res, err := f.svc.Reconcile(context.Background(), domain.CampaignRef{LedgerCampaignID: &ledgerID})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, res.Status)
}

func TestSyncPassSkipsLockedCampaigns(t *testing.T) {
	f := newSyncFixture(t,
		deployedCampaign("c1", 1, domain.CampaignStatusActive),
		deployedCampaign("c2", 2, domain.CampaignStatusActive),
	)
	f.ledger.records[1] = domain.CampaignRecord{Deadline: time.Now().Add(time.Hour)}
	f.ledger.records[2] = domain.CampaignRecord{Deadline: time.Now().Add(time.Hour)}

	// Another worker already holds c2's lock.
	_, err := f.locks.Acquire(context.Background(), "sync:campaign:c2", time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.svc.syncPass(context.Background()))

	// Only the unlocked campaign hit the ledger.
	assert.Equal(t, 1, f.ledger.calls)
}
