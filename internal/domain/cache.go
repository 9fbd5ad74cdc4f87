package domain

import (
	"context"
	"time"
)

// CampaignCache provides fast campaign lookups in front of the store.
type CampaignCache interface {
	Set(ctx context.Context, c Campaign) error
	Get(ctx context.Context, id string) (Campaign, error)
	GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (Campaign, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. Reconciliation workers use it
// to skip campaigns another worker is already syncing; correctness does not
// depend on it (the monotonic conditional write does), it only avoids
// redundant chain reads.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out for funding events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
