package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToAtomic(t *testing.T) {
	assert.Equal(t, int64(1_000_000), ToAtomic(1))
	assert.Equal(t, int64(25_500_000), ToAtomic(25.50))
	assert.Equal(t, int64(500_000), ToAtomic(0.5))
	assert.Equal(t, int64(1), ToAtomic(0.000001))
	assert.Equal(t, int64(0), ToAtomic(0))
}

func TestFromAtomic(t *testing.T) {
	assert.Equal(t, 1.0, FromAtomic(1_000_000))
	assert.Equal(t, 0.5, FromAtomic(500_000))
	assert.Equal(t, 1200.0, FromAtomic(1_200_000_000))
}

func TestAtomicRoundTrip(t *testing.T) {
	for _, v := range []float64{0.01, 1, 42.42, 999_999.999999} {
		assert.Equal(t, v, FromAtomic(ToAtomic(v)))
	}
}

func TestBelowMinimumErrorUnwrap(t *testing.T) {
	err := &BelowMinimumError{Minimum: 2_000_000}
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Contains(t, err.Error(), "$2.00")
}

func TestTierSoldOutErrorUnwrap(t *testing.T) {
	err := &TierSoldOutError{Cap: 5}
	assert.ErrorIs(t, err, ErrTierSoldOut)
	assert.Contains(t, err.Error(), "5")
}
