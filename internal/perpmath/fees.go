package perpmath

import "solana-perp-history/internal/domain"

// BaseFee is the flat component of an open or close fee:
// sizeUsd * feeRateBps / 10_000.
func BaseFee(sizeUsd domain.USD, feeRateBps int64) domain.USD {
	return domain.USD(mulDiv(int64(sizeUsd), feeRateBps, BpsDenominator))
}

// PriceImpactBps is the depth-dependent fee component in basis points:
// sizeUsd * 10_000 / marketDepthScalar. Larger trades against shallower
// markets pay more. A zero scalar means the market charges no impact fee.
func PriceImpactBps(sizeUsd domain.USD, marketDepthScalar int64) int64 {
	if marketDepthScalar == 0 {
		return 0
	}
	return mulDiv(int64(sizeUsd), BpsDenominator, marketDepthScalar)
}

// TradeFee is the full open or close fee. The base rate and the price
// impact are summed in basis points first so the conversion to USD
// divides only once.
func TradeFee(sizeUsd domain.USD, feeRateBps, marketDepthScalar int64) domain.USD {
	totalBps := feeRateBps + PriceImpactBps(sizeUsd, marketDepthScalar)
	return domain.USD(mulDiv(int64(sizeUsd), totalBps, BpsDenominator))
}

// Leverage is the notional to collateral ratio, for reporting.
func Leverage(sizeUsd, collateralUsd domain.USD) float64 {
	if collateralUsd == 0 {
		return 0
	}
	return float64(sizeUsd) / float64(collateralUsd)
}

// Roi is realized PnL over collateral as a percentage.
func Roi(pnlUsd, collateralUsd domain.USD) float64 {
	if collateralUsd == 0 {
		return 0
	}
	return float64(pnlUsd) / float64(collateralUsd) * 100
}
