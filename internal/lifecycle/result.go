package lifecycle

import (
	"fmt"

	"solana-perp-history/internal/domain"
)

// DataErrorKind classifies a data-consistency problem found while
// grouping.
type DataErrorKind string

// MissingOpeningEvent marks a decrease or liquidation for an identifier
// with no active trade: the opening event fell outside the observed
// window or was lost upstream.
const MissingOpeningEvent DataErrorKind = "MissingOpeningEvent"

// DataError describes one discarded event. Discarding is deliberate: a
// synthetic opening would fabricate trade numbers, a warning does not.
type DataError struct {
	Kind       DataErrorKind
	Identifier domain.PositionIdentifier
	EventKind  domain.EventKind
	Signature  string
	BlockTime  int64
}

func (e DataError) String() string {
	return fmt.Sprintf("%s: %s for %s at %d (sig %s)", e.Kind, e.EventKind, e.Identifier, e.BlockTime, e.Signature)
}

// Result partitions one owner's event sequence into trades. Completed is
// sorted by close time descending; Active is sorted by identifier so
// repeated runs produce identical output.
type Result struct {
	Active    []*domain.Trade
	Completed []*domain.Trade
	Errors    []DataError
}
