package domain

// PositionIdentifier is the base58-encoded address of a position account.
// The settlement program derives one account per (owner, custody, collateral
// custody, side) combination and reuses it across open/close cycles, so an
// identifier alone does not name a single trade.
type PositionIdentifier string

func (p PositionIdentifier) String() string {
	return string(p)
}

// Side is the direction of a position.
type Side uint8

const (
	SideUnknown Side = iota
	SideLong
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "unknown"
	}
}

// Sign returns +1 for long, -1 for short, 0 otherwise.
func (s Side) Sign() int64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// TradeStatus is the lifecycle state of a reconstructed trade.
type TradeStatus uint8

const (
	StatusActive TradeStatus = iota
	StatusClosed
	StatusLiquidated
)

func (s TradeStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	case StatusLiquidated:
		return "liquidated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal lifecycle state.
func (s TradeStatus) Terminal() bool {
	return s == StatusClosed || s == StatusLiquidated
}
