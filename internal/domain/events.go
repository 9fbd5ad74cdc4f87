package domain

import "time"

// Signal bus channels.
const (
	ChannelCampaigns = "campaigns"
	ChannelPledges   = "pledges"
)

// PledgeAcceptedEvent is published after a pledge commits.
type PledgeAcceptedEvent struct {
	PledgeID   string    `json:"pledge_id"`
	CampaignID string    `json:"campaign_id"`
	TierID     *string   `json:"tier_id,omitempty"`
	Amount     int64     `json:"amount"`
	BackerID   string    `json:"backer_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CampaignSyncedEvent is published after a reconciliation writes a status.
type CampaignSyncedEvent struct {
	CampaignID   string         `json:"campaign_id"`
	Status       CampaignStatus `json:"status"`
	RaisedAmount int64          `json:"raised_amount"`
	Terminal     bool           `json:"terminal"`
	SyncedAt     time.Time      `json:"synced_at"`
}
