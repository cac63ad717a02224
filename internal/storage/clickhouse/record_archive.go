package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/storage"
)

// RecordArchive implements storage.RecordArchive on ClickHouse. The
// raw_records table is a ReplacingMergeTree keyed by (identifier,
// block_time, signature), so re-archiving the same fetch is harmless:
// duplicates collapse at merge time.
type RecordArchive struct {
	conn *Conn
}

// NewRecordArchive creates a record archive over an open connection.
func NewRecordArchive(conn *Conn) *RecordArchive {
	return &RecordArchive{conn: conn}
}

var _ storage.RecordArchive = (*RecordArchive)(nil)

// InsertBulk archives one identifier's fetched records. Records without
// a block time are skipped: the table is ordered by block time and a
// record that cannot be placed in the timeline has no analytic value.
func (a *RecordArchive) InsertBulk(ctx context.Context, identifier domain.PositionIdentifier, records []*domain.RawRecord) error {
	if identifier == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO raw_records (identifier, signature, slot, block_time, fee_lamports, failed)
	`)
	if err != nil {
		return fmt.Errorf("prepare raw_records batch: %w", err)
	}

	for _, rec := range records {
		if rec == nil || rec.Signature == "" {
			return storage.ErrInvalidInput
		}
		if rec.BlockTime == nil {
			continue
		}

		failed := uint8(0)
		if rec.Failed {
			failed = 1
		}
		err := batch.Append(
			string(identifier),
			rec.Signature,
			rec.Slot,
			time.Unix(*rec.BlockTime, 0).UTC(),
			rec.FeeLamports,
			failed,
		)
		if err != nil {
			return fmt.Errorf("append raw_records row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send raw_records batch: %w", err)
	}
	return nil
}

// GetByIdentifier retrieves archived metadata with block time in
// [start, end], ordered by block time ascending.
func (a *RecordArchive) GetByIdentifier(ctx context.Context, identifier domain.PositionIdentifier, start, end int64) ([]*domain.RawRecord, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT signature, slot, block_time, fee_lamports, failed
		FROM raw_records FINAL
		WHERE identifier = ? AND block_time BETWEEN ? AND ?
		ORDER BY block_time ASC, signature ASC
	`, string(identifier), time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("query raw_records: %w", err)
	}
	defer rows.Close()

	var result []*domain.RawRecord
	for rows.Next() {
		var (
			rec       domain.RawRecord
			blockTime time.Time
			failed    uint8
		)
		if err := rows.Scan(&rec.Signature, &rec.Slot, &blockTime, &rec.FeeLamports, &failed); err != nil {
			return nil, fmt.Errorf("scan raw_records row: %w", err)
		}
		bt := blockTime.Unix()
		rec.BlockTime = &bt
		rec.Failed = failed != 0
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw_records: %w", err)
	}
	return result, nil
}

// CountByIdentifier reports how many records are archived for an
// identifier.
func (a *RecordArchive) CountByIdentifier(ctx context.Context, identifier domain.PositionIdentifier) (uint64, error) {
	row := a.conn.QueryRow(ctx, `
		SELECT count() FROM raw_records FINAL WHERE identifier = ?
	`, string(identifier))

	var n uint64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count raw_records: %w", err)
	}
	return n, nil
}
