package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		identifier, ordinal, owner, side, status,
		entry_price, exit_price,
		current_size_usd, max_size_usd, collateral_usd, leverage,
		cumulative_pnl_usd, roi, cumulative_fees_usd,
		open_time, close_time
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7,
		$8, $9, $10, $11,
		$12, $13, $14,
		$15, $16
	)
`

const selectTradeColumns = `
	identifier, ordinal, owner, side, status,
	entry_price, exit_price,
	current_size_usd, max_size_usd, collateral_usd, leverage,
	cumulative_pnl_usd, roi, cumulative_fees_usd,
	open_time, close_time
`

func insertArgs(t *domain.Trade) []any {
	var closeTime *time.Time
	if !t.CloseTime.IsZero() {
		ct := t.CloseTime
		closeTime = &ct
	}
	return []any{
		string(t.ID.Identifier), t.ID.Ordinal, t.Owner, int16(t.Side), int16(t.Status),
		int64(t.EntryPrice), int64(t.ExitPrice),
		int64(t.CurrentSizeUsd), int64(t.MaxSizeUsd), int64(t.CollateralUsd), t.Leverage,
		int64(t.CumulativePnlUsd), t.Roi, int64(t.CumulativeFeesUsd),
		t.OpenTime, closeTime,
	}
}

// Insert adds one trade. Returns ErrDuplicateKey if (identifier, ordinal)
// exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.ID.Identifier == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery, insertArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on
// any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.ID.Identifier == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, insertArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves one trade. Returns ErrNotFound if absent.
func (s *TradeStore) GetByID(ctx context.Context, id domain.TradeID) (*domain.Trade, error) {
	query := `SELECT ` + selectTradeColumns + ` FROM trades WHERE identifier = $1 AND ordinal = $2`

	row := s.pool.QueryRow(ctx, query, string(id.Identifier), id.Ordinal)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByOwner retrieves all trades for an owner, ordered by open time,
// then identifier, then ordinal.
func (s *TradeStore) GetByOwner(ctx context.Context, owner string) ([]*domain.Trade, error) {
	query := `SELECT ` + selectTradeColumns + `
		FROM trades
		WHERE owner = $1
		ORDER BY open_time ASC, identifier ASC, ordinal ASC`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get trades by owner: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetByStatus retrieves an owner's trades with the given status.
func (s *TradeStore) GetByStatus(ctx context.Context, owner string, status domain.TradeStatus) ([]*domain.Trade, error) {
	query := `SELECT ` + selectTradeColumns + `
		FROM trades
		WHERE owner = $1 AND status = $2
		ORDER BY open_time ASC, identifier ASC, ordinal ASC`

	rows, err := s.pool.Query(ctx, query, owner, int16(status))
	if err != nil {
		return nil, fmt.Errorf("get trades by status: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var (
		t          domain.Trade
		identifier string
		side       int16
		status     int16
		entryPrice int64
		exitPrice  int64
		size       int64
		maxSize    int64
		collateral int64
		pnl        int64
		fees       int64
		closeTime  *time.Time
	)

	err := row.Scan(
		&identifier, &t.ID.Ordinal, &t.Owner, &side, &status,
		&entryPrice, &exitPrice,
		&size, &maxSize, &collateral, &t.Leverage,
		&pnl, &t.Roi, &fees,
		&t.OpenTime, &closeTime,
	)
	if err != nil {
		return nil, err
	}

	t.ID.Identifier = domain.PositionIdentifier(identifier)
	t.Side = domain.Side(side)
	t.Status = domain.TradeStatus(status)
	t.EntryPrice = domain.USD(entryPrice)
	t.ExitPrice = domain.USD(exitPrice)
	t.CurrentSizeUsd = domain.USD(size)
	t.MaxSizeUsd = domain.USD(maxSize)
	t.CollateralUsd = domain.USD(collateral)
	t.CumulativePnlUsd = domain.USD(pnl)
	t.CumulativeFeesUsd = domain.USD(fees)
	t.OpenTime = t.OpenTime.UTC()
	if closeTime != nil {
		t.CloseTime = closeTime.UTC()
	}
	return &t, nil
}

func collectTrades(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
