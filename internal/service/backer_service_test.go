package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundrail/fundrail/internal/domain"
)

type fakeBackerStore struct {
	mu      sync.Mutex
	backers map[string]domain.Backer
}

func newFakeBackerStore() *fakeBackerStore {
	return &fakeBackerStore{backers: make(map[string]domain.Backer)}
}

func (s *fakeBackerStore) Upsert(_ context.Context, b domain.Backer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backers[b.Address] = b
	return nil
}

func (s *fakeBackerStore) GetByAddress(_ context.Context, address string) (domain.Backer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.backers[address]
	if !ok {
		return domain.Backer{}, domain.ErrNotFound
	}
	return b, nil
}

var _ domain.BackerStore = (*fakeBackerStore)(nil)

func TestBackerUpsertNormalisesAddress(t *testing.T) {
	store := newFakeBackerStore()
	svc := NewBackerService(store, testLogger())

	mixed := "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	b, err := svc.Upsert(context.Background(), domain.Backer{
		Address: mixed,
		Name:    "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", b.Address)
	assert.False(t, b.CreatedAt.IsZero())

	// Lookup with a differently cased address finds the same row.
	got, err := svc.Get(context.Background(), "0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
}

func TestBackerUpsertRejectsBadAddress(t *testing.T) {
	svc := NewBackerService(newFakeBackerStore(), testLogger())

	_, err := svc.Upsert(context.Background(), domain.Backer{Address: "not-an-address"})
	assert.Error(t, err)
}

func TestBackerGetUnknown(t *testing.T) {
	svc := NewBackerService(newFakeBackerStore(), testLogger())

	_, err := svc.Get(context.Background(), "0xabcdef0123456789abcdef0123456789abcdef01")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
