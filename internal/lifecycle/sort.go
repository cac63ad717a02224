package lifecycle

import (
	"sort"

	"solana-perp-history/internal/domain"
)

// SortEvents orders a merged multi-identifier event sequence by block
// time ascending. The sort is stable: events sharing a timestamp keep
// their per-identifier fetch order, and the per-trade tie-break between
// a terminal decrease and its same-timestamp swap is applied later when
// events are attached to trades.
func SortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Context().BlockTime < events[j].Context().BlockTime
	})
}

// eventRank orders events that share a block time inside one trade:
// lifecycle transitions first, order and request detail next, swaps
// last. A swap in the closing transaction is a consequence of the
// decrease, so it must never precede it.
func eventRank(ev domain.Event) int {
	switch ev.Kind() {
	case domain.KindIncreasePosition, domain.KindDecreasePosition, domain.KindLiquidatePosition:
		return 0
	case domain.KindPreSwap, domain.KindPostSwap:
		return 2
	default:
		return 1
	}
}

// sortTradeEvents fixes the final intra-trade event order.
func sortTradeEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		ci, cj := events[i].Context(), events[j].Context()
		if ci.BlockTime != cj.BlockTime {
			return ci.BlockTime < cj.BlockTime
		}
		return eventRank(events[i]) < eventRank(events[j])
	})
}
