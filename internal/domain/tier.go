package domain

import "time"

// Tier is a reward option belonging to a campaign, optionally capped and
// optionally limited to an availability window.
type Tier struct {
	ID         string
	CampaignID string
	Title      string
	Rewards    string

	// Amount is the tier price in atomic USDC units.
	Amount int64

	// MaxBackers caps how many pledges may claim the tier; nil means
	// uncapped. Minted never exceeds the cap and only increases.
	MaxBackers *int
	Minted     int

	Active   bool
	StartsAt *time.Time
	EndsAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SoldOut reports whether the tier has reached its backer cap. The answer is
// advisory only: the commit-time conditional increment is what actually
// prevents oversell.
func (t Tier) SoldOut() bool {
	return t.MaxBackers != nil && t.Minted >= *t.MaxBackers
}
