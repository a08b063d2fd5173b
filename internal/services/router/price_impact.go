package router

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/relay-swap/internal/domain"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1% - Low impact
	PriceImpactModerate uint16 = 300  // 3% - Moderate impact
	PriceImpactHigh     uint16 = 500  // 5% - High impact
	PriceImpactExtreme  uint16 = 1000 // 10% - Extreme impact
)

// PriceImpactSeverity represents the severity level of price impact
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

// GetPriceImpactSeverity returns the severity level based on price impact bps
func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// CalculatePriceImpactHop compares the executed price of one hop with the pool's spot price.
// The fee is removed from the input first so the figure shows pure curve slippage.
// impact = (effectiveIn * reserveOut - amountOut * reserveIn) * 10000 / (effectiveIn * reserveOut)
func CalculatePriceImpactHop(hop domain.HopQuote) uint16 {
	pool := hop.Pool
	if pool == nil || hop.AmountIn == 0 || hop.AmountOut == 0 || !pool.HasValidFee() {
		return 0
	}
	reserveIn, reserveOut := pool.Reserves(hop.InputMint)
	if reserveIn == 0 || reserveOut == 0 {
		return 0
	}

	var effectiveIn, spotSide, execSide, diff uint256.Int
	effectiveIn.SetUint64(hop.AmountIn)
	mulDivFloor(&effectiveIn, pool.FeeDenominator-pool.FeeNumerator, pool.FeeDenominator)
	if effectiveIn.IsZero() {
		return 0
	}

	spotSide.Mul(&effectiveIn, uint256.NewInt(reserveOut))
	execSide.Mul(uint256.NewInt(hop.AmountOut), uint256.NewInt(reserveIn))
	if execSide.Cmp(&spotSide) >= 0 {
		return 0
	}

	diff.Sub(&spotSide, &execSide)
	diff.Mul(&diff, uint256.NewInt(10000))
	diff.Div(&diff, &spotSide)
	if !diff.IsUint64() || diff.Uint64() > 10000 {
		return 10000
	}
	return uint16(diff.Uint64())
}

// CalculatePriceImpactRoute compounds hop impacts: 1 - prod(1 - impact_i).
func CalculatePriceImpactRoute(hops []domain.HopQuote) uint16 {
	remaining := uint64(10000)
	for _, hop := range hops {
		impact := uint64(CalculatePriceImpactHop(hop))
		remaining = remaining * (10000 - impact) / 10000
	}
	return uint16(10000 - remaining)
}

// GetPriceImpactWarning returns a user-friendly warning message based on impact
func GetPriceImpactWarning(priceImpactBps uint16) string {
	switch GetPriceImpactSeverity(priceImpactBps) {
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely impact the market price"
	default:
		return ""
	}
}
