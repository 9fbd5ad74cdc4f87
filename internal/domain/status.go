package domain

import "time"

// ResolveStatus maps a ledger record and the current time to the canonical
// campaign status. Finalization has strict priority over the wall clock:
// once the escrow records an outcome it wins, even if the local deadline
// view disagreed. A passed deadline without finalization is the
// transitional ENDED state, awaiting someone to submit the finalize
// transaction.
//
// Pure function: no I/O, deterministic given its inputs.
func ResolveStatus(rec CampaignRecord, now time.Time) CampaignStatus {
	if rec.Finalized {
		if rec.Successful {
			return CampaignStatusSuccessful
		}
		return CampaignStatusFailed
	}
	if now.After(rec.Deadline) {
		return CampaignStatusEnded
	}
	return CampaignStatusActive
}
