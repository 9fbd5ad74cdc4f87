package domain

import "time"

// PledgeStatus represents the settlement state of a pledge.
type PledgeStatus string

const (
	// PledgeStatusPending is the only status this core writes. Later
	// transitions follow ledger event correlation.
	PledgeStatusPending   PledgeStatus = "PENDING"
	PledgeStatusConfirmed PledgeStatus = "CONFIRMED"
	PledgeStatusFailed    PledgeStatus = "FAILED"
)

// Pledge records a backer's contribution to a campaign. Pledges are
// immutable after creation except for their settlement status.
type Pledge struct {
	ID         string
	CampaignID string
	TierID     *string

	// Amount is atomic USDC units.
	Amount   int64
	Currency string

	BackerID string // wallet address
	TxRef    string // settlement transaction hash
	Status   PledgeStatus

	CreatedAt time.Time
}
