package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundrail/fundrail/internal/domain"
)

type pledgeFixture struct {
	campaigns *fakeCampaignStore
	tiers     *fakeTierStore
	pledges   *fakePledgeStore
	cache     *fakeCache
	bus       *fakeBus
	audit     *fakeAudit
	svc       *PledgeService
}

func newPledgeFixture(t *testing.T, campaigns []domain.Campaign, tiers []domain.Tier) *pledgeFixture {
	t.Helper()
	f := &pledgeFixture{
		campaigns: newFakeCampaignStore(campaigns...),
		tiers:     newFakeTierStore(tiers...),
		cache:     &fakeCache{},
		bus:       newFakeBus(),
		audit:     &fakeAudit{},
	}
	f.pledges = newFakePledgeStore(f.campaigns, f.tiers)
	f.svc = NewPledgeService(
		f.campaigns, f.tiers, f.pledges, f.cache, f.bus, f.audit,
		domain.DefaultMinContribution, testLogger(),
	)
	return f
}

func activeCampaign(id string, deadline time.Time) domain.Campaign {
	return domain.Campaign{
		ID:       id,
		Status:   domain.CampaignStatusActive,
		Deadline: &deadline,
	}
}

// assertUntouched checks that a rejected pledge left no partial state.
func (f *pledgeFixture) assertUntouched(t *testing.T, campaignID string) {
	t.Helper()
	assert.Zero(t, f.pledges.count())
	if c, ok := f.campaigns.get(campaignID); ok {
		assert.Zero(t, c.RaisedAmount)
	}
	assert.Empty(t, f.bus.published[domain.ChannelPledges])
	assert.Empty(t, f.audit.events)
}

func TestAcceptPledgeHappyPath(t *testing.T) {
	deadline := time.Now().Add(24 * time.Hour)
	f := newPledgeFixture(t, []domain.Campaign{activeCampaign("c1", deadline)}, nil)

	p, err := f.svc.AcceptPledge(context.Background(), AcceptPledgeInput{
		CampaignID: "c1",
		Amount:     25.50,
		BackerID:   "b1",
		TxRef:      "0xabc",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, int64(25_500_000), p.Amount)
	assert.Equal(t, "USDC", p.Currency)
	assert.Equal(t, domain.PledgeStatusPending, p.Status)

	c, _ := f.campaigns.get("c1")
	assert.Equal(t, int64(25_500_000), c.RaisedAmount)
	assert.Equal(t, []string{"c1"}, f.cache.invalidated)
	assert.Len(t, f.bus.published[domain.ChannelPledges], 1)
	assert.Contains(t, f.audit.events, "pledge_accepted")
}

func TestAcceptPledgeTierConsumesSlot(t *testing.T) {
	deadline := time.Now().Add(24 * time.Hour)
	maxBackers := 10
	tierID := "t1"
	f := newPledgeFixture(t,
		[]domain.Campaign{activeCampaign("c1", deadline)},
		[]domain.Tier{{ID: tierID, CampaignID: "c1", Active: true, MaxBackers: &maxBackers}},
	)

	_, err := f.svc.AcceptPledge(context.Background(), AcceptPledgeInput{
		CampaignID: "c1",
		TierID:     &tierID,
		Amount:     50,
		BackerID:   "b1",
	})
	require.NoError(t, err)

	tier, err := f.tiers.GetByID(context.Background(), tierID)
	require.NoError(t, err)
	assert.Equal(t, 1, tier.Minted)
}

func TestAcceptPledgeRejections(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	farFuture := time.Now().Add(48 * time.Hour)
	one := 1
	tests := []struct {
		name     string
		campaign domain.Campaign
		tier     *domain.Tier
		in       AcceptPledgeInput
		wantErr  error
	}{
		{
			name:     "unknown campaign",
			campaign: activeCampaign("other", future),
			in:       AcceptPledgeInput{CampaignID: "c1", Amount: 10},
			wantErr:  domain.ErrNotFound,
		},
		{
			name:     "draft campaign",
			campaign: domain.Campaign{ID: "c1", Status: domain.CampaignStatusDraft},
			in:       AcceptPledgeInput{CampaignID: "c1", Amount: 10},
			wantErr:  domain.ErrCampaignNotActive,
		},
		{
			name:     "ended campaign",
			campaign: domain.Campaign{ID: "c1", Status: domain.CampaignStatusEnded, Deadline: &past},
			in:       AcceptPledgeInput{CampaignID: "c1", Amount: 10},
			wantErr:  domain.ErrCampaignNotActive,
		},
		{
			name:     "deadline passed but status stale",
			campaign: activeCampaign("c1", past),
			in:       AcceptPledgeInput{CampaignID: "c1", Amount: 10},
			wantErr:  domain.ErrCampaignEnded,
		},
		{
			name:     "below platform minimum",
			campaign: activeCampaign("c1", future),
			in:       AcceptPledgeInput{CampaignID: "c1", Amount: 0.5},
			wantErr:  domain.ErrBelowMinimum,
		},
		{
			name: "below campaign minimum",
			campaign: func() domain.Campaign {
				c := activeCampaign("c1", future)
				c.MinContribution = 10_000_000
				return c
			}(),
			in:      AcceptPledgeInput{CampaignID: "c1", Amount: 5},
			wantErr: domain.ErrBelowMinimum,
		},
		{
			name:     "unknown tier",
			campaign: activeCampaign("c1", future),
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("nope"), Amount: 10},
			wantErr:  domain.ErrTierNotFound,
		},
		{
			name:     "tier on another campaign",
			campaign: activeCampaign("c1", future),
			tier:     &domain.Tier{ID: "t1", CampaignID: "c2", Active: true},
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("t1"), Amount: 10},
			wantErr:  domain.ErrTierNotFound,
		},
		{
			name:     "inactive tier",
			campaign: activeCampaign("c1", future),
			tier:     &domain.Tier{ID: "t1", CampaignID: "c1"},
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("t1"), Amount: 10},
			wantErr:  domain.ErrTierInactive,
		},
		{
			name:     "tier not yet available",
			campaign: activeCampaign("c1", future),
			tier:     &domain.Tier{ID: "t1", CampaignID: "c1", Active: true, StartsAt: &farFuture},
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("t1"), Amount: 10},
			wantErr:  domain.ErrTierNotYetAvailable,
		},
		{
			name:     "tier expired",
			campaign: activeCampaign("c1", future),
			tier:     &domain.Tier{ID: "t1", CampaignID: "c1", Active: true, EndsAt: &past},
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("t1"), Amount: 10},
			wantErr:  domain.ErrTierExpired,
		},
		{
			name:     "tier sold out",
			campaign: activeCampaign("c1", future),
			tier:     &domain.Tier{ID: "t1", CampaignID: "c1", Active: true, MaxBackers: &one, Minted: 1},
			in:       AcceptPledgeInput{CampaignID: "c1", TierID: strptr("t1"), Amount: 10},
			wantErr:  domain.ErrTierSoldOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tiers []domain.Tier
			if tt.tier != nil {
				tiers = append(tiers, *tt.tier)
			}
			f := newPledgeFixture(t, []domain.Campaign{tt.campaign}, tiers)

			_, err := f.svc.AcceptPledge(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			f.assertUntouched(t, tt.in.CampaignID)
		})
	}
}

func TestAcceptPledgeBelowMinimumCarriesFloor(t *testing.T) {
	c := activeCampaign("c1", time.Now().Add(time.Hour))
	c.MinContribution = 2_000_000
	f := newPledgeFixture(t, []domain.Campaign{c}, nil)

	_, err := f.svc.AcceptPledge(context.Background(), AcceptPledgeInput{
		CampaignID: "c1",
		Amount:     1,
	})
	require.Error(t, err)

	var belowMin *domain.BelowMinimumError
	require.ErrorAs(t, err, &belowMin)
	assert.Equal(t, int64(2_000_000), belowMin.Minimum)
}

// Two pledges racing for a tier's last slot: the conditional increment in
// the store must admit exactly one.
func TestAcceptPledgeLastSlotRace(t *testing.T) {
	deadline := time.Now().Add(24 * time.Hour)
	one := 1
	tierID := "t1"
	f := newPledgeFixture(t,
		[]domain.Campaign{activeCampaign("c1", deadline)},
		[]domain.Tier{{ID: tierID, CampaignID: "c1", Active: true, MaxBackers: &one}},
	)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AcceptPledge(context.Background(), AcceptPledgeInput{
				CampaignID: "c1",
				TierID:     &tierID,
				Amount:     10,
				BackerID:   "b" + string(rune('1'+i)),
			})
		}(i)
	}
	wg.Wait()

	var ok, soldOut int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrTierSoldOut):
			soldOut++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, soldOut)
	assert.Equal(t, 1, f.pledges.count())

	tier, err := f.tiers.GetByID(context.Background(), tierID)
	require.NoError(t, err)
	assert.Equal(t, 1, tier.Minted)
}

func TestGetPledge(t *testing.T) {
	f := newPledgeFixture(t, []domain.Campaign{activeCampaign("c1", time.Now().Add(time.Hour))}, nil)

	created, err := f.svc.AcceptPledge(context.Background(), AcceptPledgeInput{
		CampaignID: "c1",
		Amount:     10,
		BackerID:   "b1",
	})
	require.NoError(t, err)

	got, err := f.svc.GetPledge(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.svc.GetPledge(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func strptr(s string) *string { return &s }
