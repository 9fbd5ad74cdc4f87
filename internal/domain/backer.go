package domain

import "time"

// Backer is a wallet-address-keyed display profile. The ledger knows only
// addresses; names and avatars live here.
type Backer struct {
	Address   string
	Name      string
	Avatar    string
	Bio       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
