// Package lifecycle partitions a time-ordered event sequence into trade
// lifecycles. Position accounts are reused across many independent
// open-to-close cycles, so the grouper tracks one state machine per
// identifier (NoActiveTrade -> Active -> Closed or Liquidated) plus an
// ordinal counter that distinguishes the cycles.
package lifecycle

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/perpmath"
)

// Grouper consumes a sorted event sequence scoped to one owner. It holds
// no state between runs; all lifecycle state lives in a per-call
// groupState, so grouping the same input twice yields identical results.
type Grouper struct {
	logger zerolog.Logger
}

// NewGrouper creates a grouper. The logger may be a no-op.
func NewGrouper(logger zerolog.Logger) *Grouper {
	return &Grouper{logger: logger}
}

// groupState is the mutable state of one Group call.
type groupState struct {
	active   map[domain.PositionIdentifier]*domain.Trade
	ordinals map[domain.PositionIdentifier]int
	byTime   map[int64][]*domain.Trade
	attached map[*domain.Trade]map[string]struct{}
	res      *Result
}

func newGroupState() *groupState {
	return &groupState{
		active:   map[domain.PositionIdentifier]*domain.Trade{},
		ordinals: map[domain.PositionIdentifier]int{},
		byTime:   map[int64][]*domain.Trade{},
		attached: map[*domain.Trade]map[string]struct{}{},
		res:      &Result{},
	}
}

// Group runs the state machine over events, which must already be sorted
// by block time ascending (see SortEvents).
//
// Primary lifecycle events drive the state machine. Auxiliary events
// (swaps, trigger orders, fills, keeper requests) are attached at their
// position in the sequence: by identifier to the trade active at that
// point when they carry one, otherwise to the trade whose primary event
// shares their exact record timestamp, which captures same-transaction
// swap context. Attaching in order keeps an auxiliary from leaking onto
// a later lifecycle of a reused identifier.
func (g *Grouper) Group(events []domain.Event) *Result {
	st := newGroupState()

	for _, ev := range events {
		switch e := ev.(type) {
		case *domain.IncreasePosition:
			g.applyIncrease(st, e)
		case *domain.DecreasePosition:
			g.applyDecrease(st, e)
		case *domain.LiquidatePosition:
			g.applyLiquidate(st, e)
		case *domain.Unhandled:
			// Recognized but unmodeled; carries no lifecycle state.
		default:
			g.attach(st, ev)
		}
	}

	res := st.res
	for _, tr := range st.active {
		res.Active = append(res.Active, tr)
	}
	sort.Slice(res.Active, func(i, j int) bool {
		return res.Active[i].ID.Identifier < res.Active[j].ID.Identifier
	})
	sort.SliceStable(res.Completed, func(i, j int) bool {
		a, b := res.Completed[i], res.Completed[j]
		if !a.CloseTime.Equal(b.CloseTime) {
			return a.CloseTime.After(b.CloseTime)
		}
		if a.ID.Identifier != b.ID.Identifier {
			return a.ID.Identifier < b.ID.Identifier
		}
		return a.ID.Ordinal < b.ID.Ordinal
	})

	for _, tr := range res.Active {
		sortTradeEvents(tr.Events)
	}
	for _, tr := range res.Completed {
		sortTradeEvents(tr.Events)
	}

	return res
}

func (g *Grouper) applyIncrease(st *groupState, e *domain.IncreasePosition) {
	tr, ok := st.active[e.Position]
	if !ok {
		tr = &domain.Trade{
			ID:                domain.TradeID{Identifier: e.Position, Ordinal: st.ordinals[e.Position]},
			Owner:             e.Owner,
			Side:              e.Side,
			Status:            domain.StatusActive,
			EntryPrice:        e.Price,
			CurrentSizeUsd:    e.SizeUsdDelta,
			MaxSizeUsd:        e.SizeUsdDelta,
			CollateralUsd:     e.CollateralUsdDelta,
			CumulativeFeesUsd: e.FeeUsd,
			OpenTime:          time.Unix(e.Ctx.BlockTime, 0).UTC(),
			Events:            []domain.Event{e},
		}
		tr.Leverage = perpmath.Leverage(tr.CurrentSizeUsd, tr.CollateralUsd)
		st.active[e.Position] = tr
		st.byTime[e.Ctx.BlockTime] = append(st.byTime[e.Ctx.BlockTime], tr)
		return
	}

	tr.CurrentSizeUsd += e.SizeUsdDelta
	tr.CollateralUsd += e.CollateralUsdDelta
	tr.CumulativeFeesUsd += e.FeeUsd
	if tr.CurrentSizeUsd > tr.MaxSizeUsd {
		tr.MaxSizeUsd = tr.CurrentSizeUsd
	}
	tr.Leverage = perpmath.Leverage(tr.CurrentSizeUsd, tr.CollateralUsd)
	tr.Events = append(tr.Events, e)
	st.byTime[e.Ctx.BlockTime] = append(st.byTime[e.Ctx.BlockTime], tr)
}

func (g *Grouper) applyDecrease(st *groupState, e *domain.DecreasePosition) {
	tr, ok := st.active[e.Position]
	if !ok {
		g.reportMissingOpening(st, e.Position, e)
		return
	}

	tr.CumulativePnlUsd += e.PnlDeltaUsd
	tr.CumulativeFeesUsd += e.FeeUsd
	tr.Roi = perpmath.Roi(tr.CumulativePnlUsd, tr.CollateralUsd)
	tr.Events = append(tr.Events, e)
	st.byTime[e.Ctx.BlockTime] = append(st.byTime[e.Ctx.BlockTime], tr)

	// The program reports the remaining size; it is authoritative for
	// close detection and keeps the size non-negative.
	if e.SizeUsdAfter == 0 {
		tr.CurrentSizeUsd = 0
		tr.Status = domain.StatusClosed
		tr.ExitPrice = e.Price
		tr.CloseTime = time.Unix(e.Ctx.BlockTime, 0).UTC()
		delete(st.active, e.Position)
		st.ordinals[e.Position]++
		st.res.Completed = append(st.res.Completed, tr)
		return
	}
	tr.CurrentSizeUsd = e.SizeUsdAfter
}

func (g *Grouper) applyLiquidate(st *groupState, e *domain.LiquidatePosition) {
	tr, ok := st.active[e.Position]
	if !ok {
		g.reportMissingOpening(st, e.Position, e)
		return
	}

	tr.CumulativePnlUsd += e.PnlDeltaUsd
	tr.CumulativeFeesUsd += e.FeeUsd + e.LiquidationFeeUsd
	tr.Roi = perpmath.Roi(tr.CumulativePnlUsd, tr.CollateralUsd)
	tr.CurrentSizeUsd = 0
	tr.Status = domain.StatusLiquidated
	tr.ExitPrice = e.Price
	tr.CloseTime = time.Unix(e.Ctx.BlockTime, 0).UTC()
	tr.Events = append(tr.Events, e)
	st.byTime[e.Ctx.BlockTime] = append(st.byTime[e.Ctx.BlockTime], tr)

	delete(st.active, e.Position)
	st.ordinals[e.Position]++
	st.res.Completed = append(st.res.Completed, tr)
}

func (g *Grouper) reportMissingOpening(st *groupState, id domain.PositionIdentifier, ev domain.Event) {
	ctx := ev.Context()
	g.logger.Warn().
		Str("identifier", string(id)).
		Str("kind", string(ev.Kind())).
		Str("signature", ctx.Signature).
		Msg("discarding event with no active trade")
	st.res.Errors = append(st.res.Errors, DataError{
		Kind:       MissingOpeningEvent,
		Identifier: id,
		EventKind:  ev.Kind(),
		Signature:  ctx.Signature,
		BlockTime:  ctx.BlockTime,
	})
}

// attach places one auxiliary event on the trade active at this point in
// the sequence. Events that match nothing are dropped without a warning:
// swaps and orders routinely occur outside any observed lifecycle.
func (g *Grouper) attach(st *groupState, ev domain.Event) {
	ctx := ev.Context()

	if id, ok := auxPosition(ev); ok {
		if tr, live := st.active[id]; live {
			st.attachOnce(tr, ev)
			return
		}
		// The identifier's trade may have terminated in this very
		// record; same-timestamp co-occurrence still ties them.
		for _, tr := range st.byTime[ctx.BlockTime] {
			if tr.ID.Identifier == id {
				st.attachOnce(tr, ev)
				return
			}
		}
		return
	}

	// Swaps carry no position; same-timestamp co-occurrence with a
	// primary event ties them to the transaction's trade.
	if trades := st.byTime[ctx.BlockTime]; len(trades) > 0 {
		st.attachOnce(trades[0], ev)
	}
}

func (st *groupState) attachOnce(tr *domain.Trade, ev domain.Event) {
	key := ev.Context().Signature + "|" + string(ev.Kind())
	seen, ok := st.attached[tr]
	if !ok {
		seen = map[string]struct{}{}
		st.attached[tr] = seen
	}
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}
	tr.Events = append(tr.Events, ev)
}

// auxPosition extracts the position identifier an auxiliary event
// carries, if any.
func auxPosition(ev domain.Event) (domain.PositionIdentifier, bool) {
	switch e := ev.(type) {
	case *domain.ConditionalOrderCreated:
		return e.Position, true
	case *domain.ConditionalOrderUpdated:
		return e.Position, true
	case *domain.LimitOrderFilled:
		return e.Position, true
	case *domain.RequestCreated:
		return e.Position, true
	default:
		return "", false
	}
}
