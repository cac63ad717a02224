package domain

import (
	"strconv"
	"time"
)

// TradeID distinguishes successive trades that reuse one position account.
// Ordinal starts at 0 and increments each time a lifecycle terminates.
type TradeID struct {
	Identifier PositionIdentifier
	Ordinal    int
}

func (id TradeID) String() string {
	return string(id.Identifier) + "#" + strconv.Itoa(id.Ordinal)
}

// Trade is one reconstructed open-to-close lifecycle of a position account.
// Mutated in place by the lifecycle grouper while active; immutable once the
// status is terminal.
type Trade struct {
	ID     TradeID
	Owner  string
	Side   Side
	Status TradeStatus

	EntryPrice USD
	ExitPrice  USD // zero until terminated

	CurrentSizeUsd USD
	MaxSizeUsd     USD
	CollateralUsd  USD
	Leverage       float64

	CumulativePnlUsd  USD
	Roi               float64 // percent of collateral
	CumulativeFeesUsd USD

	OpenTime  time.Time
	CloseTime time.Time // zero until terminated

	// Events holds every event attributed to this trade, primary and
	// auxiliary, in lifecycle order.
	Events []Event
}

// Active reports whether the trade still has an open position.
func (t *Trade) Active() bool {
	return t.Status == StatusActive
}
