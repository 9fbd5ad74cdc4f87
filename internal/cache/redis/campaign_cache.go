package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundrail/fundrail/internal/domain"
)

const defaultCampaignTTL = 5 * time.Minute

// CampaignCache implements domain.CampaignCache using Redis hashes with
// JSON-serialized Campaign data and a secondary ledger-id index.
//
// Key schema:
//
//	campaign:{id}           - hash with field "data" containing JSON
//	campaign:ledger:{lid}   - string value of the campaign ID
type CampaignCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCampaignCache creates a CampaignCache backed by the given Client.
// A non-positive ttl falls back to the 5-minute default.
func NewCampaignCache(c *Client, ttl time.Duration) *CampaignCache {
	if ttl <= 0 {
		ttl = defaultCampaignTTL
	}
	return &CampaignCache{rdb: c.Underlying(), ttl: ttl}
}

func campaignKey(id string) string { return "campaign:" + id }
func campaignLedgerKey(lid int64) string {
	return "campaign:ledger:" + strconv.FormatInt(lid, 10)
}

// Set stores a Campaign in the cache. It also creates a ledger-id index
// entry when the campaign is deployed.
func (cc *CampaignCache) Set(ctx context.Context, c domain.Campaign) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal campaign %s: %w", c.ID, err)
	}

	key := campaignKey(c.ID)

	pipe := cc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, cc.ttl)

	if c.LedgerCampaignID != nil {
		pipe.Set(ctx, campaignLedgerKey(*c.LedgerCampaignID), c.ID, cc.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set campaign %s: %w", c.ID, err)
	}
	return nil
}

// Get retrieves a Campaign by its off-ledger ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (cc *CampaignCache) Get(ctx context.Context, id string) (domain.Campaign, error) {
	data, err := cc.rdb.HGet(ctx, campaignKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Campaign{}, domain.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("redis: get campaign %s: %w", id, err)
	}

	var c domain.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Campaign{}, fmt.Errorf("redis: unmarshal campaign %s: %w", id, err)
	}
	return c, nil
}

// GetByLedgerID retrieves a Campaign via the ledger-id index.
func (cc *CampaignCache) GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (domain.Campaign, error) {
	id, err := cc.rdb.Get(ctx, campaignLedgerKey(ledgerCampaignID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Campaign{}, domain.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("redis: get campaign by ledger id %d: %w", ledgerCampaignID, err)
	}
	return cc.Get(ctx, id)
}

// Invalidate removes a campaign (and its ledger-id index entry) from the
// cache so the next read falls through to the store.
func (cc *CampaignCache) Invalidate(ctx context.Context, id string) error {
	// Read the cached copy first so the index entry can be dropped too.
	c, err := cc.Get(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	keys := []string{campaignKey(id)}
	if err == nil && c.LedgerCampaignID != nil {
		keys = append(keys, campaignLedgerKey(*c.LedgerCampaignID))
	}

	if err := cc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate campaign %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CampaignCache = (*CampaignCache)(nil)
