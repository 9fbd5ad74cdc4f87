// Package domain defines the core types, store interfaces, and sentinel
// errors shared by every layer of fundrail.
package domain

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	// CampaignStatusDraft is a campaign that exists only off-ledger.
	CampaignStatusDraft CampaignStatus = "DRAFT"
	// CampaignStatusActive is a deployed campaign accepting pledges.
	CampaignStatusActive CampaignStatus = "ACTIVE"
	// CampaignStatusEnded means the deadline passed but the escrow has not
	// finalized the outcome yet. Non-terminal.
	CampaignStatusEnded CampaignStatus = "ENDED"
	// CampaignStatusSuccessful is the terminal funded outcome.
	CampaignStatusSuccessful CampaignStatus = "SUCCESSFUL"
	// CampaignStatusFailed is the terminal unfunded outcome; backers may
	// claim refunds from the escrow.
	CampaignStatusFailed CampaignStatus = "FAILED"
)

// IsTerminal reports whether the status can never change again.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusSuccessful || s == CampaignStatusFailed
}

// Campaign is the cached mirror of an escrowed crowdfunding campaign plus
// the metadata the ledger does not hold.
type Campaign struct {
	ID               string
	LedgerCampaignID *int64 // escrow campaign id; immutable once set
	CreatorAddress   string
	Title            string
	Description      string
	Story            string
	Category         string
	Tags             []string
	CoverImage       string
	Gallery          []string

	// GoalAmount and RaisedAmount are atomic USDC units (6 decimals).
	// RaisedAmount is a best-effort mirror until finalization, when the
	// escrow total becomes authoritative.
	GoalAmount      int64
	RaisedAmount    int64
	MinContribution int64

	DurationDays    int
	StartDate       *time.Time
	Deadline        *time.Time
	Status          CampaignStatus
	FinalizedAt     *time.Time
	RefundAvailable bool
	CreationTxRef   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deployed reports whether the campaign has been bound to an escrow record.
func (c Campaign) Deployed() bool {
	return c.LedgerCampaignID != nil
}

// CampaignFilter narrows campaign list queries.
type CampaignFilter struct {
	Status   CampaignStatus
	Category string
	Creator  string
}

// SyncResult is the outcome of applying a resolved status to the cache.
type SyncResult struct {
	Updated      bool
	Status       CampaignStatus
	RaisedAmount int64
}
