// Package sim drives the daily generate, clear and reset cycle over a
// population of agents.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/efreitasn/hermes/internal/domain"
	"github.com/efreitasn/hermes/internal/engine"
)

// SummarySink stores day summaries. The store's DayStore satisfies it.
type SummarySink interface {
	Put(d *domain.DaySummary)
}

// Journal persists a finished day and its trades.
type Journal interface {
	RecordDay(ctx context.Context, summary *domain.DaySummary, trades []*domain.Trade) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of agents generating orders at once and
// the number of goods cleared at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSeed fixes the seed used for every day's clearing shuffles.
func WithSeed(seed uint64) Option {
	return func(r *Runner) { r.seed = seed }
}

// WithLogger sets the logger handed to each day's market.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCheckInvariants makes every day verify each agent's invariants after
// the reset, on top of the global conservation check.
func WithCheckInvariants(on bool) Option {
	return func(r *Runner) { r.checkInvariants = on }
}

// WithSummarySink records every day's summary in sink.
func WithSummarySink(sink SummarySink) Option {
	return func(r *Runner) { r.summaries = sink }
}

// WithTradeSink forwards every settled trade to sink.
func WithTradeSink(sink engine.TradeSink) Option {
	return func(r *Runner) { r.trades = sink }
}

// WithJournal persists every finished day to j.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// Runner owns the population and runs whole days over it, one at a time.
type Runner struct {
	agents          []*domain.Agent
	workers         int
	seed            uint64
	logger          *slog.Logger
	checkInvariants bool
	summaries       SummarySink
	trades          engine.TradeSink
	journal         Journal

	lastDay int
}

// NewRunner creates a runner for the given population.
func NewRunner(agents []*domain.Agent, opts ...Option) *Runner {
	r := &Runner{
		agents:  agents,
		workers: runtime.NumCPU(),
		seed:    uint64(time.Now().UnixNano()),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LastDay returns the number of the last day run, or 0.
func (r *Runner) LastDay() int {
	return r.lastDay
}

// Run executes the given number of days after the last one run. The
// context is checked between days only; a day in progress always finishes.
func (r *Runner) Run(ctx context.Context, days int) ([]*domain.DaySummary, error) {
	summaries := make([]*domain.DaySummary, 0, days)
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		summary, err := r.RunDay(ctx, r.lastDay+1)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RunDay opens a market, lets every agent submit sells and then buys until
// its budgets are exhausted, clears the market, and resets every agent.
// Total money and total goods of each type are checked before and after;
// any difference is returned as ErrInvariantViolation.
func (r *Runner) RunDay(ctx context.Context, day int) (*domain.DaySummary, error) {
	started := time.Now()
	moneyBefore, goodsBefore := Totals(r.agents)

	opts := []engine.Option{
		engine.WithSeed(r.seed),
		engine.WithWorkers(r.workers),
		engine.WithLogger(r.logger),
	}
	if r.trades != nil {
		opts = append(opts, engine.WithTradeSink(r.trades))
	}
	m := engine.NewMarket(day, opts...)

	sellValue, buyValue, err := r.generate(m)
	if err != nil {
		return nil, fmt.Errorf("day %d: generate orders: %w", day, err)
	}

	trades, err := m.Clear()
	if err != nil {
		return nil, fmt.Errorf("day %d: clear market: %w", day, err)
	}

	for _, a := range r.agents {
		a.FinishDay()
	}

	moneyAfter, goodsAfter := Totals(r.agents)
	if moneyAfter != moneyBefore {
		return nil, fmt.Errorf("day %d: %w: total money %d became %d",
			day, domain.ErrInvariantViolation, moneyBefore, moneyAfter)
	}
	for i, before := range goodsBefore {
		if goodsAfter[i] != before {
			return nil, fmt.Errorf("day %d: %w: total %v %d became %d",
				day, domain.ErrInvariantViolation, domain.AllGoods()[i], before, goodsAfter[i])
		}
	}
	if r.checkInvariants {
		for _, a := range r.agents {
			if err := a.CheckInvariants(); err != nil {
				return nil, fmt.Errorf("day %d: %w", day, err)
			}
		}
	}

	sells, buys := m.OrderCount()
	summary := &domain.DaySummary{
		Day:        day,
		SellOrders: sells,
		BuyOrders:  buys,
		SellValue:  sellValue,
		BuyValue:   buyValue,
		Trades:     trades,
		Failed:     m.FailedSettlements(),
		TotalMoney: moneyAfter,
		Goods:      m.Stats(),
		StartedAt:  started,
	}
	for _, gs := range summary.Goods {
		summary.UnitsTraded += gs.UnitsTraded
		summary.TradedValue += gs.Value
	}
	summary.Duration = time.Since(started)
	r.lastDay = day

	if r.summaries != nil {
		r.summaries.Put(summary)
	}
	if r.journal != nil {
		if err := r.journal.RecordDay(ctx, summary, m.Trades()); err != nil {
			return summary, fmt.Errorf("day %d: journal: %w", day, err)
		}
	}

	r.logger.Info("day finished",
		slog.Int("day", day),
		slog.String("sell_orders", humanize.Comma(int64(sells))),
		slog.String("buy_orders", humanize.Comma(int64(buys))),
		slog.String("trades", humanize.Comma(int64(trades))),
		slog.String("traded_value", humanize.Comma(summary.TradedValue)),
		slog.Int("failed", summary.Failed),
		slog.String("total_money", humanize.Comma(moneyAfter)),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// generate runs one task per agent on a bounded pool. Each task emits sell
// orders until the agent reports 0, then buy orders until 0. It returns the
// total committed sell and buy value.
func (r *Runner) generate(m *engine.Market) (sellValue, buyValue int64, err error) {
	var (
		sold, bought atomic.Int64
		once         sync.Once
		firstErr     error
	)
	fail := func(e error) {
		once.Do(func() { firstErr = e })
	}

	jobs := make(chan *domain.Agent)
	var wg sync.WaitGroup
	for i := 0; i < min(r.workers, max(len(r.agents), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				s, b, err := emitOrders(a, m)
				sold.Add(s)
				bought.Add(b)
				if err != nil {
					fail(err)
				}
			}
		}()
	}
	for _, a := range r.agents {
		jobs <- a
	}
	close(jobs)
	wg.Wait()

	return sold.Load(), bought.Load(), firstErr
}

func emitOrders(a *domain.Agent, m *engine.Market) (sold, bought int64, err error) {
	for {
		cost, err := a.GenerateSellOrder(m)
		if err != nil {
			return sold, bought, err
		}
		if cost == 0 {
			break
		}
		sold += cost
	}
	for {
		cost, err := a.GenerateBuyOrder(m)
		if err != nil {
			return sold, bought, err
		}
		if cost == 0 {
			break
		}
		bought += cost
	}
	return sold, bought, nil
}

// Totals returns the population's total money and total units of each
// good, indexed by Good.Index.
func Totals(agents []*domain.Agent) (money int64, goods [domain.NumGoods]int64) {
	for _, a := range agents {
		a.Mu.Lock()
		money += a.Money
		for g, qty := range a.Inventory {
			goods[g.Index()] += qty
		}
		a.Mu.Unlock()
	}
	return money, goods
}
