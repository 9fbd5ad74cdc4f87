package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundrail/fundrail/internal/domain"
)

type deployFixture struct {
	campaigns *fakeCampaignStore
	cache     *fakeCache
	ledger    *fakeLedger
	bus       *fakeBus
	audit     *fakeAudit
	svc       *DeployService
}

func newDeployFixture(t *testing.T, campaigns ...domain.Campaign) *deployFixture {
	t.Helper()
	f := &deployFixture{
		campaigns: newFakeCampaignStore(campaigns...),
		cache:     &fakeCache{},
		ledger:    newFakeLedger(),
		bus:       newFakeBus(),
		audit:     &fakeAudit{},
	}
	f.svc = NewDeployService(f.campaigns, f.cache, f.ledger, f.bus, f.audit, testLogger())
	return f
}

func TestBindDeploymentActivatesDraft(t *testing.T) {
	f := newDeployFixture(t, domain.Campaign{
		ID:           "c1",
		Status:       domain.CampaignStatusDraft,
		DurationDays: 30,
	})

	c, err := f.svc.BindDeployment(context.Background(), "c1", 7, "0xdeploy")
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignStatusActive, c.Status)
	require.NotNil(t, c.LedgerCampaignID)
	assert.Equal(t, int64(7), *c.LedgerCampaignID)
	assert.Equal(t, "0xdeploy", c.CreationTxRef)
	require.NotNil(t, c.StartDate)
	require.NotNil(t, c.Deadline)
	assert.WithinDuration(t, c.StartDate.Add(30*24*time.Hour), *c.Deadline, time.Second)

	assert.Equal(t, []string{"c1"}, f.cache.invalidated)
	assert.Len(t, f.bus.published[domain.ChannelCampaigns], 1)
	assert.Contains(t, f.audit.events, "campaign_deployed")
}

func TestBindDeploymentSameIDIsIdempotent(t *testing.T) {
	f := newDeployFixture(t, domain.Campaign{
		ID:           "c1",
		Status:       domain.CampaignStatusDraft,
		DurationDays: 30,
	})

	first, err := f.svc.BindDeployment(context.Background(), "c1", 7, "0xdeploy")
	require.NoError(t, err)

	second, err := f.svc.BindDeployment(context.Background(), "c1", 7, "0xretry")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.CreationTxRef, second.CreationTxRef)
	require.NotNil(t, second.LedgerCampaignID)
	assert.Equal(t, int64(7), *second.LedgerCampaignID)
}

func TestBindDeploymentDifferentIDFails(t *testing.T) {
	f := newDeployFixture(t, domain.Campaign{
		ID:           "c1",
		Status:       domain.CampaignStatusDraft,
		DurationDays: 30,
	})

	_, err := f.svc.BindDeployment(context.Background(), "c1", 7, "0xdeploy")
	require.NoError(t, err)

	_, err = f.svc.BindDeployment(context.Background(), "c1", 8, "0xother")
	assert.ErrorIs(t, err, domain.ErrAlreadyBound)

	c, _ := f.campaigns.get("c1")
	require.NotNil(t, c.LedgerCampaignID)
	assert.Equal(t, int64(7), *c.LedgerCampaignID)
}

func TestBindDeploymentMissingDraft(t *testing.T) {
	f := newDeployFixture(t)

	_, err := f.svc.BindDeployment(context.Background(), "missing", 7, "0xdeploy")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.audit.events)
}

func TestBindDeploymentUnreadableLedgerIsNotFatal(t *testing.T) {
	f := newDeployFixture(t, domain.Campaign{
		ID:           "c1",
		Status:       domain.CampaignStatusDraft,
		DurationDays: 14,
	})
	f.ledger.err = domain.ErrChainRead

	c, err := f.svc.BindDeployment(context.Background(), "c1", 7, "0xdeploy")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, c.Status)
}
