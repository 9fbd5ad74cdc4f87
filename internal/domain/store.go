package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// CampaignRef identifies a campaign for reconciliation. The ledger campaign
// id is the primary key; the off-ledger id is a fallback for callers that
// only have the draft identifier.
type CampaignRef struct {
	ID               string
	LedgerCampaignID *int64
}

// CampaignStore persists campaign rows.
//
// BindDeployment and ApplyResolution must each be a single atomic
// conditional update: concurrent callers are serialized by the storage
// engine, never by application-level locking.
type CampaignStore interface {
	Create(ctx context.Context, c Campaign) error
	GetByID(ctx context.Context, id string) (Campaign, error)
	GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (Campaign, error)
	List(ctx context.Context, filter CampaignFilter, opts ListOpts) ([]Campaign, error)
	Count(ctx context.Context, filter CampaignFilter) (int64, error)

	// ListUnresolved returns deployed campaigns whose status is still
	// ACTIVE or ENDED, i.e. the sync worker's work queue.
	ListUnresolved(ctx context.Context, opts ListOpts) ([]Campaign, error)

	// BindDeployment records the ledger campaign id on a draft and
	// activates it. Binding the same id twice is an idempotent no-op
	// returning the bound row; a different id returns ErrAlreadyBound.
	BindDeployment(ctx context.Context, draftID string, ledgerCampaignID int64, txRef string) (Campaign, error)

	// ApplyResolution writes a resolved status. Terminal rows are never
	// downgraded: re-applying any status over SUCCESSFUL/FAILED reports
	// Updated=false with the stored status.
	ApplyResolution(ctx context.Context, ref CampaignRef, status CampaignStatus, rec CampaignRecord) (SyncResult, error)
}

// TierStore persists reward tiers.
type TierStore interface {
	CreateBatch(ctx context.Context, tiers []Tier) error
	GetByID(ctx context.Context, id string) (Tier, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]Tier, error)
}

// PledgeStore persists pledges.
//
// CreatePending commits the pledge insert, the campaign raised-amount
// mirror increment, and (when the pledge references a capped tier) the
// conditional minted increment in one transaction. The tier increment is
// "minted = minted + 1 WHERE minted < cap"; if it affects zero rows the
// transaction rolls back and ErrTierSoldOut is returned.
type PledgeStore interface {
	CreatePending(ctx context.Context, p Pledge) (Pledge, error)
	GetByID(ctx context.Context, id string) (Pledge, error)
	ListByCampaign(ctx context.Context, campaignID string, opts ListOpts) ([]Pledge, error)
	ListByBacker(ctx context.Context, backerID string, opts ListOpts) ([]Pledge, error)
}

// BackerStore persists backer display profiles.
type BackerStore interface {
	Upsert(ctx context.Context, b Backer) error
	GetByAddress(ctx context.Context, address string) (Backer, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of state transitions.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}
