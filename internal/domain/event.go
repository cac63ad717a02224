package domain

// EventKind names a decoded program event. The values match the on-chain
// event struct names that feed the 8-byte discriminators.
type EventKind string

const (
	KindIncreasePosition        EventKind = "IncreasePositionEvent"
	KindDecreasePosition        EventKind = "DecreasePositionEvent"
	KindLiquidatePosition       EventKind = "LiquidateFullPositionEvent"
	KindPreSwap                 EventKind = "PreSwapEvent"
	KindPostSwap                EventKind = "PostSwapEvent"
	KindConditionalOrderCreated EventKind = "CreateTriggerOrderEvent"
	KindConditionalOrderUpdated EventKind = "UpdateTriggerOrderEvent"
	KindLimitOrderFilled        EventKind = "FillLimitOrderEvent"
	KindRequestCreated          EventKind = "CreatePositionRequestEvent"
	KindUnhandled               EventKind = "Unhandled"
)

// Event is the decoded, typed form of one sub-event. A closed union: the
// lifecycle grouper switches exhaustively over the concrete types, and
// recognized-but-unmodeled kinds surface as Unhandled rather than being
// silently dropped.
type Event interface {
	Kind() EventKind
	Context() EventContext
}

// IncreasePosition covers both the opening fill and subsequent size
// increases; the program emits the same event for both.
type IncreasePosition struct {
	Ctx                EventContext
	Position           PositionIdentifier
	Owner              string
	Side               Side
	Price              USD
	SizeUsdDelta       USD
	CollateralUsdDelta USD
	FeeUsd             USD
}

func (e *IncreasePosition) Kind() EventKind       { return KindIncreasePosition }
func (e *IncreasePosition) Context() EventContext { return e.Ctx }

// DecreasePosition is a partial or full close. PnlDeltaUsd is signed;
// SizeUsdAfter is the remaining size reported by the program and is
// authoritative for close detection.
type DecreasePosition struct {
	Ctx                EventContext
	Position           PositionIdentifier
	Owner              string
	Price              USD
	SizeUsdDelta       USD
	CollateralUsdDelta USD
	FeeUsd             USD
	PnlDeltaUsd        USD
	SizeUsdAfter       USD
}

func (e *DecreasePosition) Kind() EventKind       { return KindDecreasePosition }
func (e *DecreasePosition) Context() EventContext { return e.Ctx }

// LiquidatePosition is a forced full close.
type LiquidatePosition struct {
	Ctx               EventContext
	Position          PositionIdentifier
	Owner             string
	Price             USD
	SizeUsd           USD
	FeeUsd            USD
	LiquidationFeeUsd USD
	PnlDeltaUsd       USD
}

func (e *LiquidatePosition) Kind() EventKind       { return KindLiquidatePosition }
func (e *LiquidatePosition) Context() EventContext { return e.Ctx }

// PreSwap is the collateral swap half executed before a position change in
// the same transaction.
type PreSwap struct {
	Ctx      EventContext
	Owner    string
	AmountIn uint64
	MintIn   string
}

func (e *PreSwap) Kind() EventKind       { return KindPreSwap }
func (e *PreSwap) Context() EventContext { return e.Ctx }

// PostSwap is the collateral swap half executed after a position change.
type PostSwap struct {
	Ctx       EventContext
	Owner     string
	AmountOut uint64
	MintOut   string
}

func (e *PostSwap) Kind() EventKind       { return KindPostSwap }
func (e *PostSwap) Context() EventContext { return e.Ctx }

// ConditionalOrderCreated records a new take-profit/stop-loss trigger order.
type ConditionalOrderCreated struct {
	Ctx             EventContext
	Position        PositionIdentifier
	Owner           string
	OrderType       string
	TriggerPriceUsd USD
	SizeUsd         USD
}

func (e *ConditionalOrderCreated) Kind() EventKind       { return KindConditionalOrderCreated }
func (e *ConditionalOrderCreated) Context() EventContext { return e.Ctx }

// ConditionalOrderUpdated records a change to an existing trigger order.
type ConditionalOrderUpdated struct {
	Ctx             EventContext
	Position        PositionIdentifier
	Owner           string
	OrderType       string
	TriggerPriceUsd USD
	SizeUsd         USD
}

func (e *ConditionalOrderUpdated) Kind() EventKind       { return KindConditionalOrderUpdated }
func (e *ConditionalOrderUpdated) Context() EventContext { return e.Ctx }

// LimitOrderFilled records a resting limit order fill against the position.
type LimitOrderFilled struct {
	Ctx      EventContext
	Position PositionIdentifier
	Owner    string
	Price    USD
	SizeUsd  USD
}

func (e *LimitOrderFilled) Kind() EventKind       { return KindLimitOrderFilled }
func (e *LimitOrderFilled) Context() EventContext { return e.Ctx }

// RequestCreated records the keeper request that precedes a position change.
type RequestCreated struct {
	Ctx         EventContext
	Position    PositionIdentifier
	Owner       string
	RequestType string
}

func (e *RequestCreated) Kind() EventKind       { return KindRequestCreated }
func (e *RequestCreated) Context() EventContext { return e.Ctx }

// Unhandled is a recognized discriminator whose payload the pipeline does
// not model. Kept explicit so new program versions show up in results
// instead of disappearing.
type Unhandled struct {
	Ctx  EventContext
	Name string
}

func (e *Unhandled) Kind() EventKind       { return KindUnhandled }
func (e *Unhandled) Context() EventContext { return e.Ctx }
