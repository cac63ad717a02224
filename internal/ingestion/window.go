package ingestion

import (
	"errors"
	"time"
)

// ErrInvalidWindow rejects a window whose older bound is not older than
// its newer bound. This is fatal and checked before any fetch.
var ErrInvalidWindow = errors.New("ingestion: window end must be older than window start")

// Window bounds a fetch chronologically. Start is the newer bound and End
// the older bound; both are inclusive. Paging runs backward from the most
// recent record, so End is where pagination stops.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate checks the bounds are ordered.
func (w Window) Validate() error {
	if !w.End.Before(w.Start) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether a block time falls inside the window.
func (w Window) Contains(blockTime int64) bool {
	t := time.Unix(blockTime, 0)
	return !t.Before(w.End) && !t.After(w.Start)
}

// PastEnd reports whether a block time is older than the window, meaning
// no further page can contain in-window records.
func (w Window) PastEnd(blockTime int64) bool {
	return time.Unix(blockTime, 0).Before(w.End)
}

// FetchCursor is per-identifier pagination state. It lives only for the
// duration of one identifier's fetch.
type FetchCursor struct {
	BeforeSignature string
	TotalFetched    int
	Window          Window
}
