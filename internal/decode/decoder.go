// Package decode turns raw instruction payloads into typed domain events.
// Each payload carries an 8-byte type discriminator followed by a fixed
// little-endian field layout; undecodable payloads are dropped one by one
// without aborting the record they came from.
package decode

import (
	"fmt"
	"strings"

	"solana-perp-history/internal/domain"
)

// Decoder scans a record's instructions, primary and inner alike, and
// decodes every recognized event payload.
type Decoder struct {
	program string // settlement program ID; empty matches any program
	enums   *EnumTable
}

// NewDecoder creates a decoder for the given settlement program. A nil enum
// table falls back to the built-in defaults.
func NewDecoder(programID string, enums *EnumTable) *Decoder {
	if enums == nil {
		enums = DefaultEnumTable()
	}
	return &Decoder{program: programID, enums: enums}
}

// RecordStats summarizes one record's decode outcome.
type RecordStats struct {
	Decoded      int // events produced
	Dropped      int // payloads with unknown discriminators or short layouts
	UnknownEnums int // enum values outside the lookup tables
}

// decodeFunc decodes one payload into its typed event.
type decodeFunc func(d *Decoder, r *payloadReader, ctx domain.EventContext, stats *RecordStats) domain.Event

// registry maps discriminators to decoders. Names that appear on chain but
// carry no lifecycle information decode to the explicit Unhandled variant.
var registry = map[Discriminator]decodeFunc{}

// unhandledNames are recognized event kinds the pipeline deliberately does
// not model field by field.
var unhandledNames = []string{
	"PoolSwapEvent",
	"AddLiquidityEvent",
	"RemoveLiquidityEvent",
	"InstantCreateTpslEvent",
}

func init() {
	registry[eventDiscriminator(string(domain.KindIncreasePosition))] = decodeIncrease
	registry[eventDiscriminator(string(domain.KindDecreasePosition))] = decodeDecrease
	registry[eventDiscriminator(string(domain.KindLiquidatePosition))] = decodeLiquidate
	registry[eventDiscriminator(string(domain.KindPreSwap))] = decodePreSwap
	registry[eventDiscriminator(string(domain.KindPostSwap))] = decodePostSwap
	registry[eventDiscriminator(string(domain.KindConditionalOrderCreated))] = decodeOrderCreated
	registry[eventDiscriminator(string(domain.KindConditionalOrderUpdated))] = decodeOrderUpdated
	registry[eventDiscriminator(string(domain.KindLimitOrderFilled))] = decodeLimitFill
	registry[eventDiscriminator(string(domain.KindRequestCreated))] = decodeRequestCreated

	for _, name := range unhandledNames {
		n := name
		registry[eventDiscriminator(n)] = func(_ *Decoder, _ *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
			return &domain.Unhandled{Ctx: ctx, Name: n}
		}
	}
}

// DecodeRecord produces the typed events carried by one record. Failed
// records and records with no usable payloads yield an empty slice.
func (d *Decoder) DecodeRecord(rec *domain.RawRecord) ([]domain.Event, RecordStats) {
	var stats RecordStats
	if rec == nil || rec.Failed {
		return nil, stats
	}

	var blockTime int64
	if rec.BlockTime != nil {
		blockTime = *rec.BlockTime
	}

	var events []domain.Event
	for _, ins := range rec.Instructions {
		if d.program != "" && ins.ProgramID != "" && ins.ProgramID != d.program {
			continue
		}

		data := ins.Data
		if tag, rest, ok := splitDiscriminator(data); ok && tag == eventCPITag {
			// Self-CPI wrapper: the event starts after the wrapper tag.
			data = rest
		}

		disc, payload, ok := splitDiscriminator(data)
		if !ok {
			continue // not an event payload
		}

		fn, known := registry[disc]
		if !known {
			stats.Dropped++
			continue
		}

		ctx := domain.EventContext{
			Signature:  rec.Signature,
			Slot:       rec.Slot,
			BlockTime:  blockTime,
			EventIndex: ins.Index,
		}

		r := newPayloadReader(payload)
		ev := fn(d, r, ctx, &stats)
		if r.Err() != nil {
			stats.Dropped++
			continue
		}

		events = append(events, ev)
		stats.Decoded++
	}

	return events, stats
}

func decodeSide(v uint8) domain.Side {
	switch v {
	case 1:
		return domain.SideLong
	case 2:
		return domain.SideShort
	default:
		return domain.SideUnknown
	}
}

func decodeIncrease(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	return &domain.IncreasePosition{
		Ctx:                ctx,
		Position:           domain.PositionIdentifier(r.pubkey()),
		Owner:              r.pubkey(),
		Side:               decodeSide(r.u8()),
		Price:              domain.USD(r.i64()),
		SizeUsdDelta:       domain.USD(r.i64()),
		CollateralUsdDelta: domain.USD(r.i64()),
		FeeUsd:             domain.USD(r.i64()),
	}
}

func decodeDecrease(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	ev := &domain.DecreasePosition{
		Ctx:                ctx,
		Position:           domain.PositionIdentifier(r.pubkey()),
		Owner:              r.pubkey(),
		Price:              domain.USD(r.i64()),
		SizeUsdDelta:       domain.USD(r.i64()),
		CollateralUsdDelta: domain.USD(r.i64()),
		FeeUsd:             domain.USD(r.i64()),
	}
	hasProfit := r.boolean()
	pnl := domain.USD(r.i64())
	if !hasProfit {
		pnl = -pnl
	}
	ev.PnlDeltaUsd = pnl
	ev.SizeUsdAfter = domain.USD(r.i64())
	return ev
}

func decodeLiquidate(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	ev := &domain.LiquidatePosition{
		Ctx:               ctx,
		Position:          domain.PositionIdentifier(r.pubkey()),
		Owner:             r.pubkey(),
		Price:             domain.USD(r.i64()),
		SizeUsd:           domain.USD(r.i64()),
		FeeUsd:            domain.USD(r.i64()),
		LiquidationFeeUsd: domain.USD(r.i64()),
	}
	hasProfit := r.boolean()
	pnl := domain.USD(r.i64())
	if !hasProfit {
		pnl = -pnl
	}
	ev.PnlDeltaUsd = pnl
	return ev
}

func decodePreSwap(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	return &domain.PreSwap{
		Ctx:      ctx,
		Owner:    r.pubkey(),
		MintIn:   r.pubkey(),
		AmountIn: r.u64(),
	}
}

func decodePostSwap(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	return &domain.PostSwap{
		Ctx:       ctx,
		Owner:     r.pubkey(),
		MintOut:   r.pubkey(),
		AmountOut: r.u64(),
	}
}

func (d *Decoder) orderTypeName(v uint8, stats *RecordStats) string {
	name := d.enums.OrderTypeName(v)
	if strings.HasPrefix(name, "unknown(") {
		stats.UnknownEnums++
	}
	return name
}

func decodeOrderCreated(d *Decoder, r *payloadReader, ctx domain.EventContext, stats *RecordStats) domain.Event {
	return &domain.ConditionalOrderCreated{
		Ctx:             ctx,
		Position:        domain.PositionIdentifier(r.pubkey()),
		Owner:           r.pubkey(),
		OrderType:       d.orderTypeName(r.u8(), stats),
		TriggerPriceUsd: domain.USD(r.i64()),
		SizeUsd:         domain.USD(r.i64()),
	}
}

func decodeOrderUpdated(d *Decoder, r *payloadReader, ctx domain.EventContext, stats *RecordStats) domain.Event {
	return &domain.ConditionalOrderUpdated{
		Ctx:             ctx,
		Position:        domain.PositionIdentifier(r.pubkey()),
		Owner:           r.pubkey(),
		OrderType:       d.orderTypeName(r.u8(), stats),
		TriggerPriceUsd: domain.USD(r.i64()),
		SizeUsd:         domain.USD(r.i64()),
	}
}

func decodeLimitFill(_ *Decoder, r *payloadReader, ctx domain.EventContext, _ *RecordStats) domain.Event {
	return &domain.LimitOrderFilled{
		Ctx:      ctx,
		Position: domain.PositionIdentifier(r.pubkey()),
		Owner:    r.pubkey(),
		Price:    domain.USD(r.i64()),
		SizeUsd:  domain.USD(r.i64()),
	}
}

func decodeRequestCreated(d *Decoder, r *payloadReader, ctx domain.EventContext, stats *RecordStats) domain.Event {
	ev := &domain.RequestCreated{
		Ctx:      ctx,
		Position: domain.PositionIdentifier(r.pubkey()),
		Owner:    r.pubkey(),
	}
	name := d.enums.RequestTypeName(r.u8())
	if strings.HasPrefix(name, "unknown(") {
		stats.UnknownEnums++
	}
	ev.RequestType = name
	return ev
}

// String renders a discriminator for diagnostics.
func (d Discriminator) String() string {
	return fmt.Sprintf("%016x", d.Uint64())
}
