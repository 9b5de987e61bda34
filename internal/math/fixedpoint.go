package math

import (
	"math/big"
	"sync"
)

// Fixed-point scales shared with stored records. These are part of the
// wire contract and must not change.
const (
	PriceScale      int64 = 100_000_000 // oracle prices, 8 decimals
	WeatherScale    int64 = 100         // weather metric values, 2 decimals
	MultiplierScale int64 = 1000        // card reward multipliers, 1000 = 1.0x
	BpsDenominator  int64 = 10_000
)

// NeutralMultiplier is the multiplier applied to bets with no card attached.
const NeutralMultiplier int64 = MultiplierScale

// Int128 is a pooled big.Int for intermediate calculations
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

// MultiplyInt128 performs a * b using int128 to prevent overflow
func MultiplyInt128(a, b int64) *big.Int {
	result := getInt128()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivideInt128 performs numerator / denominator with rounding
func DivideInt128(numerator *big.Int, denominator int64, roundingMode RoundingMode) int64 {
	denom := big.NewInt(denominator)
	quotient := getInt128()
	remainder := getInt128()

	quotient.DivMod(numerator, denom, remainder)

	result := quotient.Int64()

	switch roundingMode {
	case RoundHalfEven:
		// Banker's rounding: if remainder == denominator/2, round to even
		half := big.NewInt(denominator / 2)
		cmp := remainder.Cmp(half)

		if cmp > 0 {
			result++
		} else if cmp == 0 && denominator%2 == 0 {
			if result%2 != 0 {
				result++
			}
		}
	case RoundUp:
		if remainder.Sign() != 0 {
			result++
		}
	case RoundDown:
		// DivMod already floors for non-negative operands
	}

	putInt128(quotient)
	putInt128(remainder)

	return result
}

type RoundingMode int

const (
	RoundDown RoundingMode = iota // Truncate (default for payouts)
	RoundHalfEven
	RoundUp
)

// MulDivFloor computes floor(a * b / denominator) with int128 intermediates.
// All inputs must be non-negative; denominator must be positive.
func MulDivFloor(a, b, denominator int64) int64 {
	num := MultiplyInt128(a, b)
	result := DivideInt128(num, denominator, RoundDown)
	putInt128(num)
	return result
}

// CheckedAdd returns a+b and reports whether the sum stayed within int64.
func CheckedAdd(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// CheckedSub returns a-b and reports whether the result stayed within int64.
func CheckedSub(a, b int64) (int64, bool) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, false
	}
	return diff, true
}
