package store

import (
	"sync"

	"github.com/efreitasn/hermes/internal/domain"
)

// TradeStore is a thread-safe in-memory store for trades,
// keyed by good. Trades are append-only.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[domain.Good][]*domain.Trade
	count  int
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[domain.Good][]*domain.Trade),
	}
}

// Append adds a trade to its good's list.
func (s *TradeStore) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[t.Good] = append(s.trades[t.Good], t)
	s.count++
}

// GetByGood returns all trades for a good in insertion order.
// Returns an empty slice if no trades exist for the good.
func (s *TradeStore) GetByGood(g domain.Good) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[g]
	result := make([]*domain.Trade, len(trades))
	copy(result, trades)
	return result
}

// GetByAgent returns the trades an agent took part in on either side,
// grouped by good in price order.
func (s *TradeStore) GetByAgent(agentID int64) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0)
	for _, g := range domain.AllGoods() {
		for _, t := range s.trades[g] {
			if t.SellerID == agentID || t.BuyerID == agentID {
				result = append(result, t)
			}
		}
	}
	return result
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
