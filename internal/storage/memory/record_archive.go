package memory

import (
	"context"
	"sort"
	"sync"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/storage"
)

type archivedRecord struct {
	identifier domain.PositionIdentifier
	record     domain.RawRecord
}

// RecordArchive is an in-memory implementation of storage.RecordArchive.
type RecordArchive struct {
	mu   sync.RWMutex
	data []archivedRecord
	seen map[string]struct{} // identifier + signature
}

// NewRecordArchive creates an empty in-memory record archive.
func NewRecordArchive() *RecordArchive {
	return &RecordArchive{seen: make(map[string]struct{})}
}

var _ storage.RecordArchive = (*RecordArchive)(nil)

// InsertBulk archives one identifier's fetched records. Records already
// archived for that identifier are skipped, re-runs are expected.
func (a *RecordArchive) InsertBulk(_ context.Context, identifier domain.PositionIdentifier, records []*domain.RawRecord) error {
	if identifier == "" {
		return storage.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, rec := range records {
		if rec == nil || rec.Signature == "" {
			return storage.ErrInvalidInput
		}
		key := string(identifier) + "|" + rec.Signature
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}

		cp := *rec
		cp.Instructions = nil // metadata only
		a.data = append(a.data, archivedRecord{identifier: identifier, record: cp})
	}
	return nil
}

// GetByIdentifier retrieves archived metadata with block time in
// [start, end], ordered by block time ascending.
func (a *RecordArchive) GetByIdentifier(_ context.Context, identifier domain.PositionIdentifier, start, end int64) ([]*domain.RawRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*domain.RawRecord
	for i := range a.data {
		ar := a.data[i]
		if ar.identifier != identifier || ar.record.BlockTime == nil {
			continue
		}
		bt := *ar.record.BlockTime
		if bt < start || bt > end {
			continue
		}
		cp := ar.record
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		bi, bj := *result[i].BlockTime, *result[j].BlockTime
		if bi != bj {
			return bi < bj
		}
		return result[i].Signature < result[j].Signature
	})
	return result, nil
}

// CountByIdentifier reports how many records are archived for an
// identifier.
func (a *RecordArchive) CountByIdentifier(_ context.Context, identifier domain.PositionIdentifier) (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var n uint64
	for i := range a.data {
		if a.data[i].identifier == identifier {
			n++
		}
	}
	return n, nil
}
