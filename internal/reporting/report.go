package reporting

import (
	"time"

	"solana-perp-history/internal/domain"
)

// RunReport summarizes one reconstruction run for rendering.
type RunReport struct {
	RunID       string
	GeneratedAt time.Time

	Owner       string
	WindowStart time.Time
	WindowEnd   time.Time

	Identifiers     int
	PagesFetched    int
	RecordsFetched  int
	PartialFailures int

	EventsDecoded   int
	PayloadsDropped int
	UnknownEnums    int

	Active    []*domain.Trade
	Completed []*domain.Trade
	DataError []string
}
