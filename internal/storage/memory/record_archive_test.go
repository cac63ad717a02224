package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/storage"
)

func rawRecord(sig string, blockTime int64) *domain.RawRecord {
	bt := blockTime
	return &domain.RawRecord{
		Signature:   sig,
		Slot:        blockTime,
		BlockTime:   &bt,
		FeeLamports: 5000,
		Instructions: []domain.Instruction{
			{ProgramID: "prog", Data: []byte{1, 2, 3}},
		},
	}
}

func TestRecordArchive_InsertAndQuery(t *testing.T) {
	a := NewRecordArchive()
	ctx := context.Background()

	require.NoError(t, a.InsertBulk(ctx, "posA", []*domain.RawRecord{
		rawRecord("s2", 200),
		rawRecord("s1", 100),
		rawRecord("s3", 300),
	}))

	recs, err := a.GetByIdentifier(ctx, "posA", 100, 250)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "s1", recs[0].Signature)
	assert.Equal(t, "s2", recs[1].Signature)
	assert.Nil(t, recs[0].Instructions, "archive keeps metadata only")

	n, err := a.CountByIdentifier(ctx, "posA")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	n, err = a.CountByIdentifier(ctx, "posB")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordArchive_RerunsSkipDuplicates(t *testing.T) {
	a := NewRecordArchive()
	ctx := context.Background()

	batch := []*domain.RawRecord{rawRecord("s1", 100)}
	require.NoError(t, a.InsertBulk(ctx, "posA", batch))
	require.NoError(t, a.InsertBulk(ctx, "posA", batch))

	n, err := a.CountByIdentifier(ctx, "posA")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// The same signature under another identifier is a distinct row.
	require.NoError(t, a.InsertBulk(ctx, "posB", batch))
	n, err = a.CountByIdentifier(ctx, "posB")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestRecordArchive_InvalidInput(t *testing.T) {
	a := NewRecordArchive()
	ctx := context.Background()

	assert.ErrorIs(t, a.InsertBulk(ctx, "", nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, a.InsertBulk(ctx, "posA", []*domain.RawRecord{{}}), storage.ErrInvalidInput)
}
