package decode

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-perp-history/internal/domain"
)

const testProgram = "PERPtestprogram11111111111111111111111111111"

// payload builder helpers mirroring the on-chain little-endian layouts.

type payloadBuilder struct {
	buf []byte
}

func newEvent(name string) *payloadBuilder {
	d := eventDiscriminator(name)
	return &payloadBuilder{buf: append([]byte{}, d[:]...)}
}

func (b *payloadBuilder) key(fill byte) *payloadBuilder {
	k := make([]byte, 32)
	for i := range k {
		k[i] = fill
	}
	b.buf = append(b.buf, k...)
	return b
}

func (b *payloadBuilder) u8(v uint8) *payloadBuilder {
	b.buf = append(b.buf, v)
	return b
}

func (b *payloadBuilder) u64(v uint64) *payloadBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *payloadBuilder) wrapped() []byte {
	return append(append([]byte{}, eventCPITag[:]...), b.buf...)
}

func keyB58(fill byte) string {
	k := make([]byte, 32)
	for i := range k {
		k[i] = fill
	}
	return base58.Encode(k)
}

func record(instructions ...domain.Instruction) *domain.RawRecord {
	bt := int64(1700000000)
	return &domain.RawRecord{
		Signature:    "sig1",
		Slot:         42,
		BlockTime:    &bt,
		Instructions: instructions,
	}
}

func TestDecodeRecord_Increase(t *testing.T) {
	payload := newEvent(string(domain.KindIncreasePosition)).
		key(0xAA). // position
		key(0xBB). // owner
		u8(1).     // long
		u64(175_250_000).   // price
		u64(1_000_000_000). // size delta
		u64(100_000_000).   // collateral delta
		u64(600_000).       // fee
		buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(domain.Instruction{
		ProgramID: testProgram,
		Index:     0,
		Data:      payload,
	}))

	require.Len(t, events, 1)
	assert.Equal(t, 1, stats.Decoded)
	assert.Equal(t, 0, stats.Dropped)

	inc, ok := events[0].(*domain.IncreasePosition)
	require.True(t, ok)
	assert.Equal(t, domain.PositionIdentifier(keyB58(0xAA)), inc.Position)
	assert.Equal(t, keyB58(0xBB), inc.Owner)
	assert.Equal(t, domain.SideLong, inc.Side)
	assert.Equal(t, domain.USD(175_250_000), inc.Price)
	assert.Equal(t, domain.USD(1_000_000_000), inc.SizeUsdDelta)
	assert.Equal(t, domain.USD(100_000_000), inc.CollateralUsdDelta)
	assert.Equal(t, domain.USD(600_000), inc.FeeUsd)
	assert.Equal(t, "sig1", inc.Ctx.Signature)
	assert.Equal(t, int64(1700000000), inc.Ctx.BlockTime)
}

func TestDecodeRecord_DecreaseSignsPnl(t *testing.T) {
	loss := newEvent(string(domain.KindDecreasePosition)).
		key(0xAA).key(0xBB).
		u64(170_000_000). // price
		u64(500_000_000). // size delta
		u64(50_000_000).  // collateral delta
		u64(300_000).     // fee
		u8(0).            // has_profit = false
		u64(12_000_000).  // pnl magnitude
		u64(0).           // size after
		buf

	d := NewDecoder(testProgram, nil)
	events, _ := d.DecodeRecord(record(domain.Instruction{ProgramID: testProgram, Data: loss}))

	require.Len(t, events, 1)
	dec := events[0].(*domain.DecreasePosition)
	assert.Equal(t, domain.USD(-12_000_000), dec.PnlDeltaUsd, "loss must decode as negative pnl")
	assert.Equal(t, domain.USD(0), dec.SizeUsdAfter)
}

func TestDecodeRecord_CPIWrapperStripped(t *testing.T) {
	wrapped := newEvent(string(domain.KindLiquidatePosition)).
		key(0xAA).key(0xBB).
		u64(160_000_000). // price
		u64(800_000_000). // size
		u64(480_000).     // fee
		u64(8_000_000).   // liquidation fee
		u8(0).            // loss
		u64(90_000_000).  // pnl magnitude
		wrapped()

	d := NewDecoder(testProgram, nil)
	events, _ := d.DecodeRecord(record(domain.Instruction{ProgramID: testProgram, Data: wrapped}))

	require.Len(t, events, 1)
	liq := events[0].(*domain.LiquidatePosition)
	assert.Equal(t, domain.USD(-90_000_000), liq.PnlDeltaUsd)
	assert.Equal(t, domain.USD(8_000_000), liq.LiquidationFeeUsd)
}

func TestDecodeRecord_UnknownDiscriminatorDropped(t *testing.T) {
	bogus := newEvent("SomeFutureEvent").u64(1).buf

	good := newEvent(string(domain.KindPreSwap)).
		key(0xCC).key(0xDD).u64(25_000).buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(
		domain.Instruction{ProgramID: testProgram, Index: 0, Data: bogus},
		domain.Instruction{ProgramID: testProgram, Index: 1, Data: good},
	))

	require.Len(t, events, 1, "unknown payload must not abort the record")
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Decoded)
	assert.Equal(t, domain.KindPreSwap, events[0].Kind())
}

func TestDecodeRecord_ShortPayloadDropped(t *testing.T) {
	short := newEvent(string(domain.KindIncreasePosition)).key(0xAA).buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(domain.Instruction{ProgramID: testProgram, Data: short}))

	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Dropped)
}

func TestDecodeRecord_ProgramFilter(t *testing.T) {
	payload := newEvent(string(domain.KindPostSwap)).
		key(0xCC).key(0xDD).u64(31_000).buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(domain.Instruction{
		ProgramID: "OtherProgram1111111111111111111111111111111",
		Data:      payload,
	}))

	assert.Empty(t, events)
	assert.Zero(t, stats.Dropped, "foreign program instructions are not events")
}

func TestDecodeRecord_FailedRecordIgnored(t *testing.T) {
	payload := newEvent(string(domain.KindPostSwap)).key(0xCC).key(0xDD).u64(1).buf

	rec := record(domain.Instruction{ProgramID: testProgram, Data: payload})
	rec.Failed = true

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(rec)
	assert.Empty(t, events)
	assert.Zero(t, stats.Decoded)
}

func TestDecodeRecord_UnhandledKindExplicit(t *testing.T) {
	payload := newEvent("PoolSwapEvent").u64(123).buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(domain.Instruction{ProgramID: testProgram, Data: payload}))

	require.Len(t, events, 1)
	un, ok := events[0].(*domain.Unhandled)
	require.True(t, ok)
	assert.Equal(t, "PoolSwapEvent", un.Name)
	assert.Equal(t, 1, stats.Decoded)
}

func TestDecodeRecord_UnknownEnumCounted(t *testing.T) {
	payload := newEvent(string(domain.KindConditionalOrderCreated)).
		key(0xAA).key(0xBB).
		u8(99). // not in the lookup table
		u64(150_000_000).
		u64(400_000_000).
		buf

	d := NewDecoder(testProgram, nil)
	events, stats := d.DecodeRecord(record(domain.Instruction{ProgramID: testProgram, Data: payload}))

	require.Len(t, events, 1)
	order := events[0].(*domain.ConditionalOrderCreated)
	assert.Equal(t, "unknown(99)", order.OrderType)
	assert.Equal(t, 1, stats.UnknownEnums)
}

func TestLoadEnumOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enums.toml")
	content := `
[order_types]
3 = "trailing_stop"

[request_types]
0 = "instant"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadEnumOverrides(path)
	require.NoError(t, err)

	assert.Equal(t, "trailing_stop", table.OrderTypeName(3), "overrides extend the table")
	assert.Equal(t, "instant", table.RequestTypeName(0), "overrides replace defaults")
	assert.Equal(t, "take_profit", table.OrderTypeName(0), "untouched defaults survive")
	assert.Equal(t, "unknown(42)", table.OrderTypeName(42))
}

func TestLoadEnumOverrides_BadKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enums.toml")
	require.NoError(t, os.WriteFile(path, []byte("[order_types]\nabc = \"x\"\n"), 0o644))

	_, err := LoadEnumOverrides(path)
	assert.Error(t, err)
}
