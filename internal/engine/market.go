package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/hermes/internal/domain"
)

// TradeSink receives every settled trade. The store's TradeStore
// satisfies it.
type TradeSink interface {
	Append(trade *domain.Trade)
}

// Option configures a Market.
type Option func(*Market)

// WithSeed fixes the seed of the clearing shuffles.
func WithSeed(seed uint64) Option {
	return func(m *Market) { m.seed = seed }
}

// WithWorkers bounds how many goods are cleared in parallel.
func WithWorkers(n int) Option {
	return func(m *Market) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the logger used for trade and settlement diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Market) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTradeSink forwards settled trades to sink.
func WithTradeSink(sink TradeSink) Option {
	return func(m *Market) { m.sink = sink }
}

// Market is one day's order book and matching engine. Orders are
// submitted concurrently while the market is open; Clear closes it and
// runs a single matching pass.
type Market struct {
	day     int
	books   [domain.NumGoods]*OrderBook
	closed  atomic.Bool
	seed    uint64
	workers int
	logger  *slog.Logger
	sink    TradeSink

	mu     sync.Mutex // protects trades and stats
	trades []*domain.Trade
	stats  [domain.NumGoods]domain.GoodStats
}

// NewMarket creates an open market for the given day with a book for
// every good in the price table.
func NewMarket(day int, opts ...Option) *Market {
	m := &Market{
		day:     day,
		seed:    rand.Uint64(),
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, g := range domain.AllGoods() {
		m.books[g.Index()] = NewOrderBook(g)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Day returns the day this market serves.
func (m *Market) Day() int {
	return m.day
}

// SubmitSell appends a sell order to its good's book.
func (m *Market) SubmitSell(o *domain.Order) error {
	if o.Side != domain.OrderSideSell {
		return &domain.ValidationError{Message: fmt.Sprintf("SubmitSell: order side is %q", o.Side)}
	}
	return m.submit(o)
}

// SubmitBuy appends a buy order to its good's book.
func (m *Market) SubmitBuy(o *domain.Order) error {
	if o.Side != domain.OrderSideBuy {
		return &domain.ValidationError{Message: fmt.Sprintf("SubmitBuy: order side is %q", o.Side)}
	}
	return m.submit(o)
}

func (m *Market) submit(o *domain.Order) error {
	if !o.Good.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrUnknownGood, o.Good)
	}
	if err := m.books[o.Good.Index()].appendOrder(o, m.closed.Load); err != nil {
		return err
	}
	m.logger.Debug("order submitted",
		slog.Int("day", m.day),
		slog.String("side", string(o.Side)),
		slog.Int64("agent_id", o.AgentID()),
		slog.String("good", o.Good.String()),
		slog.Int64("amount", o.Amount),
		slog.Int64("cost", o.Cost),
	)
	return nil
}

// Book returns the order book for g, or nil for an unknown good.
func (m *Market) Book(g domain.Good) *OrderBook {
	if !g.Valid() {
		return nil
	}
	return m.books[g.Index()]
}

// Closed reports whether clearing has started.
func (m *Market) Closed() bool {
	return m.closed.Load()
}

// Clear closes the market to new orders and matches every good's book
// once, settling each matched pair. It returns the number of trades
// executed. Goods are cleared in parallel; settlement lock ordering keeps
// agents trading several goods at once safe. A second call returns
// ErrMarketClosed.
func (m *Market) Clear() (int, error) {
	if !m.closed.CompareAndSwap(false, true) {
		return 0, domain.ErrMarketClosed
	}

	jobs := make(chan *OrderBook)
	var wg sync.WaitGroup
	for i := 0; i < min(m.workers, len(m.books)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for book := range jobs {
				m.clearBook(book)
			}
		}()
	}
	for _, book := range m.books {
		jobs <- book
	}
	close(jobs)
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades), nil
}

// clearBook shuffles both sides independently, then pairs each unfilled
// sell with the first unfilled buy of identical amount from another
// agent. A pair that fails settlement is not retried: the sell order is
// dropped for the day and the buy order stays available.
func (m *Market) clearBook(book *OrderBook) {
	sells, buys := book.snapshot()
	stats := domain.GoodStats{
		Good:       book.good,
		SellOrders: len(sells),
		BuyOrders:  len(buys),
	}
	defer func() {
		m.mu.Lock()
		m.stats[book.good.Index()] = stats
		m.mu.Unlock()
	}()
	if len(sells) == 0 || len(buys) == 0 {
		return
	}

	rng := rand.New(rand.NewPCG(m.seed, uint64(m.day)<<8|uint64(book.good)))
	rng.Shuffle(len(sells), func(i, j int) { sells[i], sells[j] = sells[j], sells[i] })
	rng.Shuffle(len(buys), func(i, j int) { buys[i], buys[j] = buys[j], buys[i] })
	index := newBuyIndex(buys)

	for _, sell := range sells {
		if sell.Filled() {
			continue
		}
		entry, ok := index.match(sell)
		if !ok {
			continue
		}
		buy := entry.Order

		if err := ExecuteTrade(sell.Agent, buy.Agent, book.good, sell.Amount); err != nil {
			stats.Failed++
			m.logger.Warn("cannot settle trade",
				slog.Int("day", m.day),
				slog.String("good", book.good.String()),
				slog.String("sell_order_id", sell.OrderID),
				slog.String("buy_order_id", buy.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := sell.MarkFilled(); err != nil {
			m.logger.Error("sell order filled twice", slog.String("order_id", sell.OrderID))
		}
		if err := buy.MarkFilled(); err != nil {
			m.logger.Error("buy order filled twice", slog.String("order_id", buy.OrderID))
		}
		index.remove(entry)

		trade := &domain.Trade{
			TradeID:     uuid.New().String(),
			Day:         m.day,
			Good:        book.good,
			Amount:      sell.Amount,
			Cost:        sell.Cost,
			SellerID:    sell.AgentID(),
			BuyerID:     buy.AgentID(),
			SellOrderID: sell.OrderID,
			BuyOrderID:  buy.OrderID,
			ExecutedAt:  time.Now(),
		}
		stats.Trades++
		stats.UnitsTraded += trade.Amount
		stats.Value += trade.Cost
		m.record(trade)
	}
}

func (m *Market) record(trade *domain.Trade) {
	m.logger.Debug("trade executed",
		slog.Int("day", trade.Day),
		slog.Int64("buyer_id", trade.BuyerID),
		slog.Int64("seller_id", trade.SellerID),
		slog.String("good", trade.Good.String()),
		slog.Int64("amount", trade.Amount),
		slog.Int64("cost", trade.Cost),
	)
	m.mu.Lock()
	m.trades = append(m.trades, trade)
	m.mu.Unlock()
	if m.sink != nil {
		m.sink.Append(trade)
	}
}

// Trades returns the trades executed by Clear.
func (m *Market) Trades() []*domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// Stats returns per-good statistics for goods that received orders.
// It is only meaningful after Clear.
func (m *Market) Stats() []domain.GoodStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GoodStats, 0, len(m.stats))
	for _, s := range m.stats {
		if s.SellOrders > 0 || s.BuyOrders > 0 {
			out = append(out, s)
		}
	}
	return out
}

// FailedSettlements returns how many matched pairs failed settlement.
func (m *Market) FailedSettlements() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, s := range m.stats {
		n += s.Failed
	}
	return n
}

// OrderCount returns the number of sell and buy orders submitted.
func (m *Market) OrderCount() (sells, buys int) {
	for _, book := range m.books {
		sells += book.SellCount()
		buys += book.BuyCount()
	}
	return sells, buys
}
