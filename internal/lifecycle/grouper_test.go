package lifecycle

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-perp-history/internal/domain"
)

const (
	posA  = domain.PositionIdentifier("posA")
	posB  = domain.PositionIdentifier("posB")
	owner = "ownerPubkey"
)

// usd converts whole dollars to the 6-decimal atomic unit.
func usd(n int64) domain.USD {
	return domain.USD(n * 1_000_000)
}

func evCtx(bt int64, sig string) domain.EventContext {
	return domain.EventContext{Signature: sig, Slot: bt, BlockTime: bt}
}

func inc(pos domain.PositionIdentifier, price, size, collateral, fee int64, bt int64, sig string) *domain.IncreasePosition {
	return &domain.IncreasePosition{
		Ctx:                evCtx(bt, sig),
		Position:           pos,
		Owner:              owner,
		Side:               domain.SideLong,
		Price:              usd(price),
		SizeUsdDelta:       usd(size),
		CollateralUsdDelta: usd(collateral),
		FeeUsd:             usd(fee),
	}
}

func dec(pos domain.PositionIdentifier, price, size, pnl, fee, sizeAfter int64, bt int64, sig string) *domain.DecreasePosition {
	return &domain.DecreasePosition{
		Ctx:          evCtx(bt, sig),
		Position:     pos,
		Owner:        owner,
		Price:        usd(price),
		SizeUsdDelta: usd(size),
		FeeUsd:       usd(fee),
		PnlDeltaUsd:  usd(pnl),
		SizeUsdAfter: usd(sizeAfter),
	}
}

func liq(pos domain.PositionIdentifier, price, size, pnl, fee, liqFee int64, bt int64, sig string) *domain.LiquidatePosition {
	return &domain.LiquidatePosition{
		Ctx:               evCtx(bt, sig),
		Position:          pos,
		Owner:             owner,
		Price:             usd(price),
		SizeUsd:           usd(size),
		FeeUsd:            usd(fee),
		LiquidationFeeUsd: usd(liqFee),
		PnlDeltaUsd:       usd(pnl),
	}
}

func preSwap(bt int64, sig string) *domain.PreSwap {
	return &domain.PreSwap{Ctx: evCtx(bt, sig), Owner: owner, MintIn: "mint", AmountIn: 1}
}

func orderCreated(pos domain.PositionIdentifier, bt int64, sig string) *domain.ConditionalOrderCreated {
	return &domain.ConditionalOrderCreated{
		Ctx:             evCtx(bt, sig),
		Position:        pos,
		Owner:           owner,
		OrderType:       "take_profit",
		TriggerPriceUsd: usd(150),
		SizeUsd:         usd(100),
	}
}

func group(t *testing.T, events ...domain.Event) *Result {
	t.Helper()
	return NewGrouper(zerolog.Nop()).Group(events)
}

func TestGroup_OpenCreatesTrade(t *testing.T) {
	res := group(t, inc(posA, 100, 1000, 100, 1, 10, "open"))

	require.Len(t, res.Active, 1)
	assert.Empty(t, res.Completed)
	assert.Empty(t, res.Errors)

	tr := res.Active[0]
	assert.Equal(t, domain.TradeID{Identifier: posA, Ordinal: 0}, tr.ID)
	assert.Equal(t, owner, tr.Owner)
	assert.Equal(t, domain.SideLong, tr.Side)
	assert.Equal(t, domain.StatusActive, tr.Status)
	assert.Equal(t, usd(100), tr.EntryPrice)
	assert.Equal(t, usd(1000), tr.CurrentSizeUsd)
	assert.Equal(t, usd(1000), tr.MaxSizeUsd)
	assert.Equal(t, usd(100), tr.CollateralUsd)
	assert.Equal(t, 10.0, tr.Leverage)
	assert.Equal(t, usd(1), tr.CumulativeFeesUsd)
	assert.Equal(t, time.Unix(10, 0).UTC(), tr.OpenTime)
	assert.True(t, tr.CloseTime.IsZero())
}

func TestGroup_TwoIncreasesThenFullClose(t *testing.T) {
	res := group(t,
		inc(posA, 100, 500, 50, 0, 10, "i1"),
		inc(posA, 102, 500, 50, 0, 20, "i2"),
		dec(posA, 110, 1000, 30, 0, 0, 30, "d1"),
	)

	require.Len(t, res.Completed, 1)
	assert.Empty(t, res.Active)

	tr := res.Completed[0]
	assert.Equal(t, domain.StatusClosed, tr.Status)
	assert.Equal(t, domain.USD(0), tr.CurrentSizeUsd)
	assert.Equal(t, usd(30), tr.CumulativePnlUsd)
	assert.Equal(t, usd(100), tr.CollateralUsd)
	assert.Equal(t, 10.0, tr.Leverage, "leverage before close")
	assert.Equal(t, 30.0, tr.Roi)
	assert.Equal(t, usd(1000), tr.MaxSizeUsd)
	assert.Equal(t, usd(110), tr.ExitPrice)
	assert.Equal(t, time.Unix(30, 0).UTC(), tr.CloseTime)
	assert.Len(t, tr.Events, 3)
}

func TestGroup_PartialDecreaseStaysActive(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		dec(posA, 105, 400, 12, 1, 600, 20, "d1"),
	)

	require.Len(t, res.Active, 1)
	assert.Empty(t, res.Completed)

	tr := res.Active[0]
	assert.Equal(t, domain.StatusActive, tr.Status)
	assert.Equal(t, usd(600), tr.CurrentSizeUsd)
	assert.Equal(t, usd(1000), tr.MaxSizeUsd, "max size survives partial close")
	assert.Equal(t, usd(12), tr.CumulativePnlUsd)
	assert.Equal(t, 12.0, tr.Roi)
	assert.Equal(t, usd(1), tr.CumulativeFeesUsd)
	assert.Equal(t, 0, tr.ID.Ordinal, "partial close must not advance the ordinal")
}

func TestGroup_SizeZeroExactlyWhenTerminal(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		dec(posA, 105, 400, 0, 0, 600, 20, "d1"),
		dec(posA, 107, 600, 5, 0, 0, 30, "d2"),
		inc(posB, 50, 200, 40, 0, 15, "i2"),
	)

	for _, tr := range res.Active {
		assert.True(t, tr.CurrentSizeUsd > 0)
		assert.True(t, tr.MaxSizeUsd >= tr.CurrentSizeUsd)
	}
	for _, tr := range res.Completed {
		assert.Equal(t, domain.USD(0), tr.CurrentSizeUsd)
		assert.True(t, tr.Status == domain.StatusClosed || tr.Status == domain.StatusLiquidated)
	}
}

func TestGroup_Liquidation(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 2, 10, "i1"),
		liq(posA, 40, 1000, -95, 1, 5, 20, "l1"),
	)

	require.Len(t, res.Completed, 1)
	tr := res.Completed[0]
	assert.Equal(t, domain.StatusLiquidated, tr.Status)
	assert.Equal(t, domain.USD(0), tr.CurrentSizeUsd)
	assert.Equal(t, usd(40), tr.ExitPrice)
	assert.Equal(t, usd(-95), tr.CumulativePnlUsd)
	assert.Equal(t, usd(8), tr.CumulativeFeesUsd, "open fee plus close fee plus liquidation fee")
	assert.Equal(t, -95.0, tr.Roi)
	assert.Equal(t, time.Unix(20, 0).UTC(), tr.CloseTime)
}

func TestGroup_IdentifierReuseAdvancesOrdinal(t *testing.T) {
	res := group(t,
		inc(posA, 100, 100, 10, 0, 10, "i1"),
		dec(posA, 101, 100, 1, 0, 0, 20, "d1"),
		inc(posA, 102, 100, 10, 0, 30, "i2"),
		liq(posA, 50, 100, -9, 0, 1, 40, "l1"),
		inc(posA, 103, 100, 10, 0, 50, "i3"),
	)

	require.Len(t, res.Completed, 2)
	require.Len(t, res.Active, 1)

	// Completed is close-time descending, so the liquidation comes first.
	assert.Equal(t, 1, res.Completed[0].ID.Ordinal)
	assert.Equal(t, 0, res.Completed[1].ID.Ordinal)
	assert.Equal(t, 2, res.Active[0].ID.Ordinal)
}

func TestGroup_DecreaseWithoutOpenIsDataError(t *testing.T) {
	res := group(t,
		dec(posA, 100, 500, 10, 0, 0, 10, "orphan"),
		inc(posA, 100, 1000, 100, 0, 20, "i1"),
	)

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, MissingOpeningEvent, e.Kind)
	assert.Equal(t, posA, e.Identifier)
	assert.Equal(t, domain.KindDecreasePosition, e.EventKind)
	assert.Equal(t, "orphan", e.Signature)

	require.Len(t, res.Active, 1, "later events keep processing")
	assert.Empty(t, res.Completed, "no trade is fabricated for the orphan")
	assert.Equal(t, 0, res.Active[0].ID.Ordinal)
}

func TestGroup_LiquidateWithoutOpenIsDataError(t *testing.T) {
	res := group(t, liq(posA, 50, 100, -9, 0, 1, 10, "orphan"))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, MissingOpeningEvent, res.Errors[0].Kind)
	assert.Empty(t, res.Active)
	assert.Empty(t, res.Completed)
}

func TestGroup_AuxiliaryByIdentifier(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		orderCreated(posA, 15, "o1"),
	)

	require.Len(t, res.Active, 1)
	tr := res.Active[0]
	require.Len(t, tr.Events, 2)
	assert.Equal(t, domain.KindConditionalOrderCreated, tr.Events[1].Kind())
	assert.Equal(t, usd(1000), tr.CurrentSizeUsd, "auxiliary events change no position state")
}

func TestGroup_AuxiliaryStaysOnLifecycleActiveAtItsTime(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		orderCreated(posA, 15, "o1"),
		dec(posA, 110, 1000, 30, 0, 0, 20, "d1"),
		inc(posA, 120, 500, 50, 0, 100, "i2"),
	)

	require.Len(t, res.Completed, 1)
	require.Len(t, res.Active, 1)

	first := res.Completed[0]
	assert.Equal(t, 0, first.ID.Ordinal)
	require.Len(t, first.Events, 3)
	assert.Equal(t, domain.KindConditionalOrderCreated, first.Events[1].Kind())

	second := res.Active[0]
	assert.Equal(t, 1, second.ID.Ordinal)
	assert.Len(t, second.Events, 1, "the order belongs to the earlier lifecycle")
	assert.True(t, second.OpenTime.After(time.Unix(15, 0)), "order predates this trade")
}

func TestGroup_SwapAttachedBySharedTimestamp(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		dec(posA, 110, 1000, 30, 0, 0, 30, "d1"),
		preSwap(30, "d1"),
	)

	require.Len(t, res.Completed, 1)
	tr := res.Completed[0]
	require.Len(t, tr.Events, 3)

	// The terminal decrease precedes the same-timestamp swap.
	assert.Equal(t, domain.KindDecreasePosition, tr.Events[1].Kind())
	assert.Equal(t, domain.KindPreSwap, tr.Events[2].Kind())
}

func TestGroup_AuxiliaryDeduplicatedBySignatureAndKind(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		preSwap(10, "i1"),
		preSwap(10, "i1"),
	)

	require.Len(t, res.Active, 1)
	assert.Len(t, res.Active[0].Events, 2)
}

func TestGroup_UnmatchedAuxiliaryDroppedSilently(t *testing.T) {
	res := group(t,
		inc(posA, 100, 1000, 100, 0, 10, "i1"),
		preSwap(999, "lonely"),
		orderCreated(posB, 999, "lonely2"),
	)

	require.Len(t, res.Active, 1)
	assert.Len(t, res.Active[0].Events, 1)
	assert.Empty(t, res.Errors)
}

func TestGroup_CompletedSortedByCloseTimeDescending(t *testing.T) {
	res := group(t,
		inc(posA, 100, 100, 10, 0, 10, "i1"),
		dec(posA, 101, 100, 1, 0, 0, 20, "d1"),
		inc(posB, 100, 100, 10, 0, 30, "i2"),
		dec(posB, 101, 100, 1, 0, 0, 40, "d2"),
	)

	require.Len(t, res.Completed, 2)
	assert.Equal(t, posB, res.Completed[0].ID.Identifier)
	assert.Equal(t, posA, res.Completed[1].ID.Identifier)
}

func TestGroup_Deterministic(t *testing.T) {
	events := []domain.Event{
		inc(posA, 100, 1000, 100, 1, 10, "i1"),
		inc(posB, 50, 200, 40, 0, 12, "i2"),
		dec(posA, 105, 400, 12, 1, 600, 20, "d1"),
		preSwap(20, "d1"),
		orderCreated(posA, 25, "o1"),
		dec(posA, 107, 600, 5, 0, 0, 30, "d2"),
		liq(posB, 20, 200, -38, 0, 2, 35, "l1"),
	}

	first := NewGrouper(zerolog.Nop()).Group(events)
	second := NewGrouper(zerolog.Nop()).Group(events)
	assert.Equal(t, first, second)
}

func TestSortEvents_StableForEqualTimestamps(t *testing.T) {
	a := inc(posA, 100, 100, 10, 0, 20, "a")
	b := inc(posB, 100, 100, 10, 0, 10, "b")
	c := dec(posA, 100, 100, 1, 0, 0, 20, "c")

	events := []domain.Event{a, b, c}
	SortEvents(events)

	assert.Equal(t, []domain.Event{b, a, c}, events)
}
