package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrChainRead    = errors.New("chain read failed")
	ErrNotDeployed  = errors.New("campaign not deployed to the ledger")
	ErrAlreadyBound = errors.New("campaign already bound to a ledger campaign")
	ErrLockHeld     = errors.New("lock already held")
	ErrRateLimited  = errors.New("rate limited")

	// Pledge rejections. Each maps to one validation step and is
	// user-visible; none is retryable with the same input.
	ErrCampaignNotActive   = errors.New("campaign is not active")
	ErrCampaignEnded       = errors.New("campaign has ended")
	ErrBelowMinimum        = errors.New("pledge below minimum contribution")
	ErrTierNotFound        = errors.New("tier not found")
	ErrTierInactive        = errors.New("tier is not active")
	ErrTierNotYetAvailable = errors.New("tier is not available yet")
	ErrTierExpired         = errors.New("tier has expired")
	ErrTierSoldOut         = errors.New("tier is sold out")
)

// BelowMinimumError carries the campaign's minimum so callers can render an
// actionable message. It unwraps to ErrBelowMinimum.
type BelowMinimumError struct {
	Minimum int64 // atomic USDC units
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("pledge below minimum contribution ($%.2f)", FromAtomic(e.Minimum))
}

func (e *BelowMinimumError) Unwrap() error { return ErrBelowMinimum }

// TierSoldOutError carries the tier's cap. It unwraps to ErrTierSoldOut.
type TierSoldOutError struct {
	Cap int
}

func (e *TierSoldOutError) Error() string {
	return fmt.Sprintf("tier is sold out (%d backer limit reached)", e.Cap)
}

func (e *TierSoldOutError) Unwrap() error { return ErrTierSoldOut }
