package math

import "math/big"

// PlatformFeeBps is the platform's cut of the combined pool, in basis points.
const PlatformFeeBps int64 = 200

// ComputePlatformFee returns floor(totalPool * PlatformFeeBps / 10000).
func ComputePlatformFee(totalPool int64) int64 {
	return MulDivFloor(totalPool, PlatformFeeBps, BpsDenominator)
}

// ComputeNetPool returns the pool available to winners after the fee.
func ComputeNetPool(totalPool int64) int64 {
	return totalPool - ComputePlatformFee(totalPool)
}

// ComputePayout returns the winner's share of the net pool:
//
//	floor(amount * netPool * multiplier / (winningPool * MultiplierScale))
//
// amount and winningPool share the stake unit; multiplier is scaled x1000.
// winningPool must be positive.
func ComputePayout(amount, netPool, winningPool, multiplier int64) int64 {
	num := MultiplyInt128(amount, netPool)
	num.Mul(num, big.NewInt(multiplier))

	denom := getInt128()
	denom.Mul(big.NewInt(winningPool), big.NewInt(MultiplierScale))

	quotient := getInt128()
	quotient.Div(num, denom)
	result := quotient.Int64()

	putInt128(num)
	putInt128(denom)
	putInt128(quotient)

	return result
}
