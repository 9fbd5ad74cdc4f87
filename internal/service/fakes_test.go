package service

import (
	"context"
	"sync"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
)

// fakeCampaignStore is an in-memory CampaignStore whose conditional writes
// mirror the SQL semantics: single guarded updates under one mutex.
type fakeCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]domain.Campaign
}

func newFakeCampaignStore(campaigns ...domain.Campaign) *fakeCampaignStore {
	s := &fakeCampaignStore{campaigns: make(map[string]domain.Campaign)}
	for _, c := range campaigns {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *fakeCampaignStore) get(id string) (domain.Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	return c, ok
}

func (s *fakeCampaignStore) Create(_ context.Context, c domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
	return nil
}

func (s *fakeCampaignStore) GetByID(_ context.Context, id string) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *fakeCampaignStore) GetByLedgerID(_ context.Context, ledgerCampaignID int64) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.LedgerCampaignID != nil && *c.LedgerCampaignID == ledgerCampaignID {
			return c, nil
		}
	}
	return domain.Campaign{}, domain.ErrNotFound
}

func (s *fakeCampaignStore) List(_ context.Context, filter domain.CampaignFilter, _ domain.ListOpts) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeCampaignStore) Count(ctx context.Context, filter domain.CampaignFilter) (int64, error) {
	list, _ := s.List(ctx, filter, domain.ListOpts{})
	return int64(len(list)), nil
}

func (s *fakeCampaignStore) ListUnresolved(_ context.Context, _ domain.ListOpts) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.LedgerCampaignID != nil && !c.Status.IsTerminal() && c.Status != domain.CampaignStatusDraft {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCampaignStore) BindDeployment(_ context.Context, draftID string, ledgerCampaignID int64, txRef string) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[draftID]
	if !ok {
		return domain.Campaign{}, domain.ErrNotFound
	}
	if c.LedgerCampaignID != nil {
		if *c.LedgerCampaignID == ledgerCampaignID {
			return c, nil
		}
		return domain.Campaign{}, domain.ErrAlreadyBound
	}
	now := time.Now().UTC()
	deadline := now.Add(time.Duration(c.DurationDays) * 24 * time.Hour)
	c.LedgerCampaignID = &ledgerCampaignID
	c.CreationTxRef = txRef
	c.Status = domain.CampaignStatusActive
	c.StartDate = &now
	c.Deadline = &deadline
	s.campaigns[draftID] = c
	return c, nil
}

func (s *fakeCampaignStore) ApplyResolution(_ context.Context, ref domain.CampaignRef, status domain.CampaignStatus, rec domain.CampaignRecord) (domain.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *domain.Campaign
	if ref.LedgerCampaignID != nil {
		for id := range s.campaigns {
			c := s.campaigns[id]
			if c.LedgerCampaignID != nil && *c.LedgerCampaignID == *ref.LedgerCampaignID {
				target = &c
				break
			}
		}
	}
	if target == nil && ref.ID != "" {
		if c, ok := s.campaigns[ref.ID]; ok {
			target = &c
		}
	}
	if target == nil {
		return domain.SyncResult{}, domain.ErrNotFound
	}

	if target.Status.IsTerminal() {
		return domain.SyncResult{
			Updated:      false,
			Status:       target.Status,
			RaisedAmount: target.RaisedAmount,
		}, nil
	}

	target.Status = status
	if status.IsTerminal() {
		now := time.Now().UTC()
		target.RaisedAmount = rec.TotalPledgedAtomic()
		target.FinalizedAt = &now
		target.RefundAvailable = status == domain.CampaignStatusFailed
	}
	s.campaigns[target.ID] = *target
	return domain.SyncResult{
		Updated:      true,
		Status:       target.Status,
		RaisedAmount: target.RaisedAmount,
	}, nil
}

var _ domain.CampaignStore = (*fakeCampaignStore)(nil)

// fakeTierStore is an in-memory TierStore.
type fakeTierStore struct {
	mu    sync.Mutex
	tiers map[string]domain.Tier
}

func newFakeTierStore(tiers ...domain.Tier) *fakeTierStore {
	s := &fakeTierStore{tiers: make(map[string]domain.Tier)}
	for _, t := range tiers {
		s.tiers[t.ID] = t
	}
	return s
}

func (s *fakeTierStore) CreateBatch(_ context.Context, tiers []domain.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tiers {
		s.tiers[t.ID] = t
	}
	return nil
}

func (s *fakeTierStore) GetByID(_ context.Context, id string) (domain.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiers[id]
	if !ok {
		return domain.Tier{}, domain.ErrTierNotFound
	}
	return t, nil
}

func (s *fakeTierStore) ListByCampaign(_ context.Context, campaignID string) ([]domain.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Tier
	for _, t := range s.tiers {
		if t.CampaignID == campaignID {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ domain.TierStore = (*fakeTierStore)(nil)

// fakePledgeStore models the transactional CreatePending: under one mutex
// it applies the conditional minted increment, bumps the campaign mirror,
// and records the pledge, or changes nothing at all.
type fakePledgeStore struct {
	mu        sync.Mutex
	campaigns *fakeCampaignStore
	tiers     *fakeTierStore
	pledges   map[string]domain.Pledge
}

func newFakePledgeStore(campaigns *fakeCampaignStore, tiers *fakeTierStore) *fakePledgeStore {
	return &fakePledgeStore{
		campaigns: campaigns,
		tiers:     tiers,
		pledges:   make(map[string]domain.Pledge),
	}
}

func (s *fakePledgeStore) CreatePending(_ context.Context, p domain.Pledge) (domain.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.TierID != nil {
		s.tiers.mu.Lock()
		t, ok := s.tiers.tiers[*p.TierID]
		if !ok {
			s.tiers.mu.Unlock()
			return domain.Pledge{}, domain.ErrTierNotFound
		}
		if t.MaxBackers != nil && t.Minted >= *t.MaxBackers {
			s.tiers.mu.Unlock()
			return domain.Pledge{}, &domain.TierSoldOutError{Cap: *t.MaxBackers}
		}
		t.Minted++
		s.tiers.tiers[*p.TierID] = t
		s.tiers.mu.Unlock()
	}

	s.campaigns.mu.Lock()
	c, ok := s.campaigns.campaigns[p.CampaignID]
	if !ok {
		s.campaigns.mu.Unlock()
		return domain.Pledge{}, domain.ErrNotFound
	}
	c.RaisedAmount += p.Amount
	s.campaigns.campaigns[p.CampaignID] = c
	s.campaigns.mu.Unlock()

	s.pledges[p.ID] = p
	return p, nil
}

func (s *fakePledgeStore) GetByID(_ context.Context, id string) (domain.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pledges[id]
	if !ok {
		return domain.Pledge{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePledgeStore) ListByCampaign(_ context.Context, campaignID string, _ domain.ListOpts) ([]domain.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pledge
	for _, p := range s.pledges {
		if p.CampaignID == campaignID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePledgeStore) ListByBacker(_ context.Context, backerID string, _ domain.ListOpts) ([]domain.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pledge
	for _, p := range s.pledges {
		if p.BackerID == backerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePledgeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pledges)
}

var _ domain.PledgeStore = (*fakePledgeStore)(nil)

// fakeLedger serves canned escrow records keyed by ledger campaign id.
type fakeLedger struct {
	mu      sync.Mutex
	records map[int64]domain.CampaignRecord
	err     error
	calls   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[int64]domain.CampaignRecord)}
}

func (l *fakeLedger) GetCampaign(_ context.Context, ledgerCampaignID int64) (domain.CampaignRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return domain.CampaignRecord{}, l.err
	}
	rec, ok := l.records[ledgerCampaignID]
	if !ok {
		return domain.CampaignRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

var _ domain.LedgerReader = (*fakeLedger)(nil)

// fakeCache is a no-op CampaignCache that records invalidations.
type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Set(context.Context, domain.Campaign) error { return nil }

func (c *fakeCache) Get(context.Context, string) (domain.Campaign, error) {
	return domain.Campaign{}, domain.ErrNotFound
}

func (c *fakeCache) GetByLedgerID(context.Context, int64) (domain.Campaign, error) {
	return domain.Campaign{}, domain.ErrNotFound
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	return nil
}

var _ domain.CampaignCache = (*fakeCache)(nil)

// fakeBus records published payloads per channel.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

var _ domain.SignalBus = (*fakeBus)(nil)

// fakeAudit records audit events.
type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

var _ domain.AuditStore = (*fakeAudit)(nil)

// fakeLocks grants every lock unless a key is marked held.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

var _ domain.LockManager = (*fakeLocks)(nil)
