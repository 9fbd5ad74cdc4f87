package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fundrail/fundrail/internal/domain"
)

// BackerService handles wallet-keyed display profiles. Addresses are
// normalised to lowercase so lookups are case-insensitive.
type BackerService struct {
	backers domain.BackerStore
	logger  *slog.Logger

	now func() time.Time
}

// NewBackerService creates a BackerService.
func NewBackerService(backers domain.BackerStore, logger *slog.Logger) *BackerService {
	return &BackerService{
		backers: backers,
		logger:  logger.With(slog.String("component", "backer_service")),
		now:     time.Now,
	}
}

// Upsert creates or updates a backer profile keyed by wallet address.
func (s *BackerService) Upsert(ctx context.Context, b domain.Backer) (domain.Backer, error) {
	if !common.IsHexAddress(b.Address) {
		return domain.Backer{}, fmt.Errorf("backer_service: invalid address %q", b.Address)
	}
	b.Address = strings.ToLower(b.Address)

	now := s.now().UTC()
	b.UpdatedAt = now
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}

	if err := s.backers.Upsert(ctx, b); err != nil {
		return domain.Backer{}, fmt.Errorf("backer_service: upsert %q: %w", b.Address, err)
	}

	s.logger.InfoContext(ctx, "backer_service: profile upserted",
		slog.String("address", b.Address),
	)

	return b, nil
}

// Get retrieves a backer profile by wallet address.
func (s *BackerService) Get(ctx context.Context, address string) (domain.Backer, error) {
	if !common.IsHexAddress(address) {
		return domain.Backer{}, fmt.Errorf("backer_service: invalid address %q: %w", address, domain.ErrNotFound)
	}
	b, err := s.backers.GetByAddress(ctx, strings.ToLower(address))
	if err != nil {
		return domain.Backer{}, fmt.Errorf("backer_service: get %q: %w", address, err)
	}
	return b, nil
}
