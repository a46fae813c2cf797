package engine

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/hermes/internal/domain"
)

// OrderBook holds one day's sell and buy orders for a single good.
// Appends are serialised by a per-good lock; once the market is closed
// the slices are only read.
type OrderBook struct {
	good  domain.Good
	mu    sync.Mutex
	sells []*domain.Order
	buys  []*domain.Order
}

// NewOrderBook creates an empty order book for the given good.
func NewOrderBook(good domain.Good) *OrderBook {
	return &OrderBook{good: good}
}

// Good returns the good this book trades.
func (ob *OrderBook) Good() domain.Good {
	return ob.good
}

// appendOrder adds o to the side matching o.Side unless the closed check
// fails. The check runs under the book lock so that a clearing pass which
// has taken a snapshot never misses an accepted order.
func (ob *OrderBook) appendOrder(o *domain.Order, closed func() bool) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if closed() {
		return domain.ErrMarketClosed
	}
	if o.Side == domain.OrderSideSell {
		ob.sells = append(ob.sells, o)
	} else {
		ob.buys = append(ob.buys, o)
	}
	return nil
}

// snapshot returns copies of both sides so they can be shuffled without
// disturbing submission order.
func (ob *OrderBook) snapshot() (sells, buys []*domain.Order) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	sells = make([]*domain.Order, len(ob.sells))
	copy(sells, ob.sells)
	buys = make([]*domain.Order, len(ob.buys))
	copy(buys, ob.buys)
	return sells, buys
}

// SellCount returns the number of sell orders submitted today.
func (ob *OrderBook) SellCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.sells)
}

// BuyCount returns the number of buy orders submitted today.
func (ob *OrderBook) BuyCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.buys)
}

// DepthLevel aggregates the unfilled orders of one side at one amount.
type DepthLevel struct {
	Amount int64 `json:"amount"`
	Orders int   `json:"orders"`
}

// Depth returns the unfilled orders of each side aggregated by amount,
// smallest amount first.
func (ob *OrderBook) Depth() (sells, buys []DepthLevel) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return aggregateLevels(ob.sells), aggregateLevels(ob.buys)
}

func aggregateLevels(orders []*domain.Order) []DepthLevel {
	counts := make(map[int64]int)
	for _, o := range orders {
		if !o.Filled() {
			counts[o.Amount]++
		}
	}
	levels := make([]DepthLevel, 0, len(counts))
	for amount, n := range counts {
		levels = append(levels, DepthLevel{Amount: amount, Orders: n})
	}
	slices.SortFunc(levels, func(a, b DepthLevel) int {
		return cmp.Compare(a.Amount, b.Amount)
	})
	return levels
}

// buyEntry positions a buy order by amount, then by its rank in the
// shuffled buy list.
type buyEntry struct {
	Amount int64
	Rank   int
	Order  *domain.Order
}

func buyLess(a, b buyEntry) bool {
	if a.Amount != b.Amount {
		return a.Amount < b.Amount
	}
	return a.Rank < b.Rank
}

// buyIndex answers "first unfilled buy of this amount, in shuffled order,
// not owned by this agent" with an ordered range scan.
type buyIndex struct {
	tree *btree.BTreeG[buyEntry]
}

func newBuyIndex(buys []*domain.Order) *buyIndex {
	const degree = 32
	tree := btree.NewG[buyEntry](degree, buyLess)
	for rank, o := range buys {
		tree.ReplaceOrInsert(buyEntry{Amount: o.Amount, Rank: rank, Order: o})
	}
	return &buyIndex{tree: tree}
}

// match finds the counterparty for sell without removing it.
func (ix *buyIndex) match(sell *domain.Order) (buyEntry, bool) {
	var found buyEntry
	var ok bool
	ix.tree.AscendGreaterOrEqual(buyEntry{Amount: sell.Amount, Rank: -1}, func(e buyEntry) bool {
		if e.Amount != sell.Amount {
			return false
		}
		if e.Order.Filled() || e.Order.AgentID() == sell.AgentID() {
			return true
		}
		found, ok = e, true
		return false
	})
	return found, ok
}

func (ix *buyIndex) remove(e buyEntry) {
	ix.tree.Delete(e)
}

func (ix *buyIndex) Len() int {
	return ix.tree.Len()
}
