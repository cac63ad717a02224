// Package memory provides in-memory store implementations, used by
// tests and by runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[domain.TradeID]*domain.Trade
}

// NewTradeStore creates an empty in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[domain.TradeID]*domain.Trade)}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds one trade. Returns ErrDuplicateKey if the ID exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID.Identifier == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *t
	s.data[t.ID] = &cp
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on
// any duplicate, existing or intra-batch.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[domain.TradeID]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.ID.Identifier == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[t.ID] = struct{}{}
	}

	for _, t := range trades {
		cp := *t
		s.data[t.ID] = &cp
	}
	return nil
}

// GetByID retrieves one trade. Returns ErrNotFound if absent.
func (s *TradeStore) GetByID(_ context.Context, id domain.TradeID) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *t
	return &cp, nil
}

// GetByOwner retrieves all trades for an owner, ordered by open time,
// then identifier, then ordinal.
func (s *TradeStore) GetByOwner(_ context.Context, owner string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Owner == owner {
			cp := *t
			result = append(result, &cp)
		}
	}
	sortTrades(result)
	return result, nil
}

// GetByStatus retrieves an owner's trades with the given status.
func (s *TradeStore) GetByStatus(_ context.Context, owner string, status domain.TradeStatus) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Owner == owner && t.Status == status {
			cp := *t
			result = append(result, &cp)
		}
	}
	sortTrades(result)
	return result, nil
}

func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.OpenTime.Equal(b.OpenTime) {
			return a.OpenTime.Before(b.OpenTime)
		}
		if a.ID.Identifier != b.ID.Identifier {
			return a.ID.Identifier < b.ID.Identifier
		}
		return a.ID.Ordinal < b.ID.Ordinal
	})
}
