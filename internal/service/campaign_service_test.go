package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundrail/fundrail/internal/domain"
)

func newCampaignService(campaigns *fakeCampaignStore, tiers *fakeTierStore, cache domain.CampaignCache) *CampaignService {
	return NewCampaignService(campaigns, tiers, cache, &fakeAudit{}, domain.DefaultMinContribution, testLogger())
}

func TestCreateDraftConvertsToAtomicUnits(t *testing.T) {
	campaigns := newFakeCampaignStore()
	tiers := newFakeTierStore()
	svc := newCampaignService(campaigns, tiers, &fakeCache{})

	maxBackers := 100
	c, err := svc.CreateDraft(context.Background(), CreateDraftInput{
		CreatorAddress:  "0x1111111111111111111111111111111111111111",
		Title:           "Solar Lantern",
		Goal:            5000,
		MinContribution: 2.50,
		DurationDays:    30,
		Tiers: []TierInput{
			{Title: "Early Bird", Amount: 25, MaxBackers: &maxBackers},
			{Title: "Standard", Amount: 40},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, domain.CampaignStatusDraft, c.Status)
	assert.Equal(t, int64(5_000_000_000), c.GoalAmount)
	assert.Equal(t, int64(2_500_000), c.MinContribution)
	assert.Nil(t, c.LedgerCampaignID)
	assert.Nil(t, c.Deadline)

	created, err := svc.ListTiers(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, tier := range created {
		assert.True(t, tier.Active)
		assert.Equal(t, c.ID, tier.CampaignID)
	}
}

func TestCreateDraftDefaultsMinContribution(t *testing.T) {
	svc := newCampaignService(newFakeCampaignStore(), newFakeTierStore(), &fakeCache{})

	c, err := svc.CreateDraft(context.Background(), CreateDraftInput{
		CreatorAddress: "0x1111111111111111111111111111111111111111",
		Title:          "No Floor",
		Goal:           100,
		DurationDays:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMinContribution, c.MinContribution)
}

func TestCreateDraftValidation(t *testing.T) {
	svc := newCampaignService(newFakeCampaignStore(), newFakeTierStore(), &fakeCache{})

	tests := []struct {
		name string
		in   CreateDraftInput
	}{
		{"missing title", CreateDraftInput{Goal: 100, DurationDays: 30}},
		{"zero goal", CreateDraftInput{Title: "t", DurationDays: 30}},
		{"zero duration", CreateDraftInput{Title: "t", Goal: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDraft(context.Background(), tt.in)
			assert.Error(t, err)
		})
	}
}

// recordingCache returns a canned hit to prove reads stop at the cache.
type recordingCache struct {
	fakeCache
	hit  *domain.Campaign
	sets []string
}

func (c *recordingCache) Get(context.Context, string) (domain.Campaign, error) {
	if c.hit != nil {
		return *c.hit, nil
	}
	return domain.Campaign{}, domain.ErrNotFound
}

func (c *recordingCache) GetByLedgerID(context.Context, int64) (domain.Campaign, error) {
	if c.hit != nil {
		return *c.hit, nil
	}
	return domain.Campaign{}, domain.ErrNotFound
}

func (c *recordingCache) Set(_ context.Context, campaign domain.Campaign) error {
	c.sets = append(c.sets, campaign.ID)
	return nil
}

func TestGetCacheHitSkipsStore(t *testing.T) {
	cached := domain.Campaign{ID: "c1", Title: "cached"}
	cache := &recordingCache{hit: &cached}
	// Store is empty: a hit must never reach it.
	svc := newCampaignService(newFakeCampaignStore(), newFakeTierStore(), cache)

	got, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Title)
	assert.Empty(t, cache.sets)
}

func TestGetCacheMissBackfills(t *testing.T) {
	cache := &recordingCache{}
	campaigns := newFakeCampaignStore(domain.Campaign{ID: "c1", Title: "stored"})
	svc := newCampaignService(campaigns, newFakeTierStore(), cache)

	got, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "stored", got.Title)
	assert.Equal(t, []string{"c1"}, cache.sets)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByLedgerIDCacheMissBackfills(t *testing.T) {
	cache := &recordingCache{}
	ledgerID := int64(42)
	campaigns := newFakeCampaignStore(domain.Campaign{ID: "c1", LedgerCampaignID: &ledgerID})
	svc := newCampaignService(campaigns, newFakeTierStore(), cache)

	got, err := svc.GetByLedgerID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, []string{"c1"}, cache.sets)
}
