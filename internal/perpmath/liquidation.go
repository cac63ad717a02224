package perpmath

import (
	"errors"

	"solana-perp-history/internal/domain"
)

var (
	// ErrNonPositiveSize rejects liquidation math on an empty position.
	ErrNonPositiveSize = errors.New("perpmath: position size must be positive")
	// ErrBadLeverage rejects a zero or negative leverage cap.
	ErrBadLeverage = errors.New("perpmath: max leverage must be positive")
	// ErrUnknownSide rejects positions without a resolved side.
	ErrUnknownSide = errors.New("perpmath: position side is unknown")
)

// LiquidationPrice estimates the mark price at which the position's
// margin no longer covers the maximum tolerated loss.
//
// maxLoss = size/maxLeverage + feesUsd (close fee plus accrued
// funding) is compared against margin = collateral. The distance from
// entry is |maxLoss - margin| * entryPrice / size. When maxLoss
// exceeds margin the threshold sits on the losing side of entry,
// below for longs and above for shorts. When accumulated funding
// pushes margin above maxLoss the branch flips and the threshold sits
// on the profitable side instead.
func LiquidationPrice(side domain.Side, entryPrice, sizeUsd, collateralUsd, feesUsd domain.USD, maxLeverage int64) (domain.USD, error) {
	if sizeUsd <= 0 {
		return 0, ErrNonPositiveSize
	}
	if maxLeverage <= 0 {
		return 0, ErrBadLeverage
	}

	maxLoss := sizeUsd/domain.USD(maxLeverage) + feesUsd
	margin := collateralUsd

	diff := maxLoss - margin
	lossDominates := diff > 0
	if diff < 0 {
		diff = -diff
	}
	delta := domain.USD(mulDiv(int64(diff), int64(entryPrice), int64(sizeUsd)))

	switch side {
	case domain.SideLong:
		if lossDominates {
			return entryPrice - delta, nil
		}
		return entryPrice + delta, nil
	case domain.SideShort:
		if lossDominates {
			return entryPrice + delta, nil
		}
		return entryPrice - delta, nil
	default:
		return 0, ErrUnknownSide
	}
}
