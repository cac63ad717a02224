// Package storage defines the persistence interfaces for reconstructed
// trades and fetched record metadata, with in-memory, PostgreSQL and
// ClickHouse implementations in subpackages.
package storage

import (
	"context"

	"solana-perp-history/internal/domain"
)

// TradeStore persists reconstructed trade lifecycles, keyed by
// (identifier, ordinal). Stores are append-only: a lifecycle that was
// already reconstructed in an earlier run collides with ErrDuplicateKey
// and the caller decides whether that is a problem.
type TradeStore interface {
	// Insert adds one trade. Returns ErrDuplicateKey if (identifier,
	// ordinal) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails the entire batch
	// on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves one trade. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id domain.TradeID) (*domain.Trade, error)

	// GetByOwner retrieves all trades for an owner, ordered by open time
	// ascending, then identifier, then ordinal.
	GetByOwner(ctx context.Context, owner string) ([]*domain.Trade, error)

	// GetByStatus retrieves an owner's trades with the given status, in
	// the same order as GetByOwner.
	GetByStatus(ctx context.Context, owner string, status domain.TradeStatus) ([]*domain.Trade, error)
}

// RecordArchive stores metadata of every fetched record per identifier,
// for fetch auditing and re-run planning. Instruction payloads are not
// archived; only record-level metadata is.
type RecordArchive interface {
	// InsertBulk archives a batch of records fetched for one identifier.
	InsertBulk(ctx context.Context, identifier domain.PositionIdentifier, records []*domain.RawRecord) error

	// GetByIdentifier retrieves archived record metadata for an
	// identifier with block time in [start, end], ordered by block time
	// ascending.
	GetByIdentifier(ctx context.Context, identifier domain.PositionIdentifier, start, end int64) ([]*domain.RawRecord, error)

	// CountByIdentifier reports how many records are archived for an
	// identifier.
	CountByIdentifier(ctx context.Context, identifier domain.PositionIdentifier) (uint64, error)
}
