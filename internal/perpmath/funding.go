package perpmath

import "solana-perp-history/internal/domain"

// FundingRateScale is the fixed-point scale of cumulative funding
// rates: 9 decimal places.
const FundingRateScale = 1_000_000_000

// FundingFee is the funding accrued by a position since entry:
// (current - snapshot) * size / scale. Positive means the position
// pays, negative means it receives.
func FundingFee(currentCumulativeRate, openRateSnapshot int64, sizeUsd domain.USD) domain.USD {
	return domain.USD(mulDiv(currentCumulativeRate-openRateSnapshot, int64(sizeUsd), FundingRateScale))
}
