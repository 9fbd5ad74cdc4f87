package domain

import "math"

// USDC uses 6 decimal places; one display unit is 1_000_000 atomic units.
const USDCDecimals = 1_000_000

// DefaultMinContribution is the fallback minimum pledge: $1.
const DefaultMinContribution int64 = 1 * USDCDecimals

// ToAtomic converts a display-unit amount (dollars) to atomic USDC units,
// rounding to the nearest unit.
func ToAtomic(display float64) int64 {
	return int64(math.Round(display * USDCDecimals))
}

// FromAtomic converts atomic USDC units to display units.
func FromAtomic(atomic int64) float64 {
	return float64(atomic) / USDCDecimals
}
