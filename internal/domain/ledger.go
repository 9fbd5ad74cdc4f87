package domain

import (
	"context"
	"math/big"
	"time"
)

// CampaignRecord is the escrow contract's current view of a campaign, as
// returned by getCampaign. Amounts are ledger-native integers (atomic USDC
// units carried as uint256 on chain).
type CampaignRecord struct {
	Creator      string
	Goal         *big.Int
	TotalPledged *big.Int
	Deadline     time.Time
	Finalized    bool
	Successful   bool
}

// TotalPledgedAtomic returns the pledged total clamped into an int64. USDC
// supply fits well inside 63 bits, so the clamp only matters for a corrupt
// ledger response.
func (r CampaignRecord) TotalPledgedAtomic() int64 {
	if r.TotalPledged == nil || !r.TotalPledged.IsInt64() {
		return 0
	}
	return r.TotalPledged.Int64()
}

// LedgerReader reads the current confirmed funding record for a campaign
// from the settlement ledger. Implementations must not cache: every call
// reflects current chain state. Read failures surface as ErrChainRead; an
// id the escrow has never seen surfaces as ErrNotFound.
type LedgerReader interface {
	GetCampaign(ctx context.Context, ledgerCampaignID int64) (CampaignRecord, error)
}
