package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundrail/fundrail/internal/domain"
)

// BackerStore implements domain.BackerStore using PostgreSQL.
type BackerStore struct {
	pool *pgxpool.Pool
}

// NewBackerStore creates a new BackerStore backed by the given connection
// pool.
func NewBackerStore(pool *pgxpool.Pool) *BackerStore {
	return &BackerStore{pool: pool}
}

// Upsert inserts or updates a backer profile keyed by wallet address.
func (s *BackerStore) Upsert(ctx context.Context, b domain.Backer) error {
	const query = `
		INSERT INTO backers (address, name, avatar, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (address) DO UPDATE SET
			name       = EXCLUDED.name,
			avatar     = EXCLUDED.avatar,
			bio        = EXCLUDED.bio,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, b.Address, b.Name, b.Avatar, b.Bio)
	if err != nil {
		return fmt.Errorf("postgres: upsert backer %s: %w", b.Address, err)
	}
	return nil
}

// GetByAddress retrieves a backer profile by wallet address.
func (s *BackerStore) GetByAddress(ctx context.Context, address string) (domain.Backer, error) {
	var b domain.Backer
	err := s.pool.QueryRow(ctx,
		`SELECT address, name, avatar, bio, created_at, updated_at
		 FROM backers WHERE address = $1`, address,
	).Scan(&b.Address, &b.Name, &b.Avatar, &b.Bio, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Backer{}, domain.ErrNotFound
		}
		return domain.Backer{}, fmt.Errorf("postgres: get backer %s: %w", address, err)
	}
	return b, nil
}

// Compile-time interface check.
var _ domain.BackerStore = (*BackerStore)(nil)
