package router

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/relay-swap/internal/domain"
)

// Constant-product math. Every division floors except where the reverse direction
// needs the smallest input that still reaches the requested output, which rounds up.
// The estimate therefore never exceeds what the on-chain program pays out.

// OutputAmount returns what selling inputAmount into pool yields.
// ok is false when the pool cannot service the trade (empty reserves, bad fee, zero result).
func OutputAmount(pool *domain.Pool, inputAmount uint64, aToB bool) (uint64, bool) {
	if pool == nil || inputAmount == 0 || !pool.HasValidFee() {
		return 0, false
	}
	reserveIn, reserveOut := orientedReserves(pool, aToB)
	if reserveIn == 0 || reserveOut == 0 {
		return 0, false
	}

	var effectiveIn, invariant, newReserveIn, newReserveOut uint256.Int

	// effectiveIn = inputAmount * (feeDenominator - feeNumerator) / feeDenominator
	effectiveIn.SetUint64(inputAmount)
	mulDivFloor(&effectiveIn, pool.FeeDenominator-pool.FeeNumerator, pool.FeeDenominator)
	if effectiveIn.IsZero() {
		return 0, false
	}

	// outputAmount = reserveOut - reserveIn * reserveOut / (reserveIn + effectiveIn)
	invariant.Mul(uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
	newReserveIn.Add(uint256.NewInt(reserveIn), &effectiveIn)
	newReserveOut.Div(&invariant, &newReserveIn)

	out := reserveOut - newReserveOut.Uint64()
	if out == 0 {
		return 0, false
	}
	return out, true
}

// InputAmount returns the smallest input for which OutputAmount reaches desiredOutput.
// ok is false when the pool cannot deliver desiredOutput at any input.
func InputAmount(pool *domain.Pool, desiredOutput uint64, aToB bool) (uint64, bool) {
	if pool == nil || desiredOutput == 0 || !pool.HasValidFee() {
		return 0, false
	}
	reserveIn, reserveOut := orientedReserves(pool, aToB)
	if reserveIn == 0 || reserveOut == 0 || desiredOutput >= reserveOut {
		return 0, false
	}

	var invariant, remaining, requiredIn, effectiveIn uint256.Int

	// floor(k / newReserveIn) <= reserveOut - desiredOutput holds iff
	// newReserveIn >= floor(k / (reserveOut - desiredOutput + 1)) + 1
	invariant.Mul(uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
	remaining.SetUint64(reserveOut - desiredOutput + 1)
	requiredIn.Div(&invariant, &remaining)
	requiredIn.AddUint64(&requiredIn, 1)
	effectiveIn.SubUint64(&requiredIn, reserveIn)

	// undo the fee: smallest x with floor(x * (den - num) / den) >= effectiveIn
	mulDivCeil(&effectiveIn, pool.FeeDenominator, pool.FeeDenominator-pool.FeeNumerator)
	if !effectiveIn.IsUint64() || effectiveIn.IsZero() {
		return 0, false
	}
	return effectiveIn.Uint64(), true
}

// SpotPrice returns reserveOut / reserveIn as a float for price impact reporting only.
func SpotPrice(pool *domain.Pool, aToB bool) float64 {
	reserveIn, reserveOut := orientedReserves(pool, aToB)
	if reserveIn == 0 {
		return 0
	}
	return float64(reserveOut) / float64(reserveIn)
}

func orientedReserves(pool *domain.Pool, aToB bool) (uint64, uint64) {
	if aToB {
		return pool.ReserveA, pool.ReserveB
	}
	return pool.ReserveB, pool.ReserveA
}

// mulDivFloor sets v = v * num / den
func mulDivFloor(v *uint256.Int, num, den uint64) {
	if den == 0 {
		v.Clear()
		return
	}
	v.Mul(v, uint256.NewInt(num))
	v.Div(v, uint256.NewInt(den))
}

// mulDivCeil sets v = ceil(v * num / den)
func mulDivCeil(v *uint256.Int, num, den uint64) {
	if den == 0 {
		v.Clear()
		return
	}
	var rem uint256.Int
	d := uint256.NewInt(den)
	v.Mul(v, uint256.NewInt(num))
	rem.Mod(v, d)
	v.Div(v, d)
	if !rem.IsZero() {
		v.AddUint64(v, 1)
	}
}

// MulDiv performs (a * b) / c with full precision intermediate, returning 0 on overflow
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	var result uint256.Int
	result.SetUint64(a)
	mulDivFloor(&result, b, c)
	if result.IsUint64() {
		return result.Uint64()
	}
	return 0
}
