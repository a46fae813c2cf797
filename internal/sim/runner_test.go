package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/efreitasn/hermes/internal/domain"
	"github.com/efreitasn/hermes/internal/store"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestPopulation(t testing.TB, n int, seed uint64) []*domain.Agent {
	t.Helper()
	agents, err := NewPopulation(PopulationConfig{
		NumAgents:        n,
		StartingMoney:    100,
		MaxStartingGoods: 10,
		DailyLimit:       0.5,
		Seed:             seed,
	})
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	return agents
}

type fakeJournal struct {
	mu     sync.Mutex
	days   []int
	trades int
	err    error
}

func (j *fakeJournal) RecordDay(_ context.Context, s *domain.DaySummary, trades []*domain.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.days = append(j.days, s.Day)
	j.trades += len(trades)
	return nil
}

// skimmingSink takes one unit of money from an agent on every trade.
type skimmingSink struct {
	agent *domain.Agent
}

func (s skimmingSink) Append(*domain.Trade) {
	s.agent.Mu.Lock()
	if s.agent.Money > 0 {
		s.agent.Money--
	}
	s.agent.Mu.Unlock()
}

func TestNewPopulation_SharedInventory(t *testing.T) {
	agents := newTestPopulation(t, 5, 7)
	if len(agents) != 5 {
		t.Fatalf("expected 5 agents, got %d", len(agents))
	}
	want := agents[0].Holdings()
	for i, a := range agents {
		if a.ID != int64(i+1) {
			t.Errorf("agent %d has ID %d", i, a.ID)
		}
		if a.Balance() != 100 {
			t.Errorf("agent %d balance = %d, want 100", a.ID, a.Balance())
		}
		got := a.Holdings()
		if len(got) != len(want) {
			t.Fatalf("agent %d holdings differ: %v vs %v", a.ID, got, want)
		}
		for g, qty := range want {
			if qty < 0 || qty > 10 {
				t.Errorf("quantity of %v = %d outside [0, 10]", g, qty)
			}
			if got[g] != qty {
				t.Errorf("agent %d holds %d of %v, want %d", a.ID, got[g], g, qty)
			}
		}
	}
}

func TestNewPopulation_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  PopulationConfig
	}{
		{"no agents", PopulationConfig{NumAgents: 0, DailyLimit: 0.1}},
		{"negative goods", PopulationConfig{NumAgents: 1, MaxStartingGoods: -1, DailyLimit: 0.1}},
		{"negative money", PopulationConfig{NumAgents: 1, StartingMoney: -1, DailyLimit: 0.1}},
		{"bad limit", PopulationConfig{NumAgents: 1, DailyLimit: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPopulation(tt.cfg)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("NewPopulation() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestRunDay_ConservesAndSummarises(t *testing.T) {
	agents := newTestPopulation(t, 50, 3)
	trades := store.NewTradeStore()
	days := store.NewDayStore()
	r := NewRunner(agents,
		WithSeed(11),
		WithWorkers(4),
		WithLogger(discardLogger),
		WithCheckInvariants(true),
		WithTradeSink(trades),
		WithSummarySink(days),
	)
	moneyBefore, goodsBefore := Totals(agents)

	s, err := r.RunDay(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunDay: %v", err)
	}

	moneyAfter, goodsAfter := Totals(agents)
	if moneyAfter != moneyBefore || goodsAfter != goodsBefore {
		t.Fatal("totals changed over the day")
	}
	if s.Day != 1 || s.TotalMoney != moneyBefore {
		t.Errorf("unexpected summary header %+v", s)
	}
	if s.SellOrders == 0 || s.BuyOrders == 0 {
		t.Errorf("expected orders on both sides, got %d sells and %d buys", s.SellOrders, s.BuyOrders)
	}
	if s.Trades != trades.Count() {
		t.Errorf("summary has %d trades, sink has %d", s.Trades, trades.Count())
	}
	if s.Failed != 0 {
		t.Errorf("expected no failed settlements, got %d", s.Failed)
	}
	var units, value int64
	for _, gs := range s.Goods {
		units += gs.UnitsTraded
		value += gs.Value
	}
	if units != s.UnitsTraded || value != s.TradedValue {
		t.Errorf("per-good stats (%d, %d) disagree with totals (%d, %d)", units, value, s.UnitsTraded, s.TradedValue)
	}
	if got, err := days.Get(1); err != nil || got != s {
		t.Errorf("summary not recorded: %v", err)
	}
	if r.LastDay() != 1 {
		t.Errorf("LastDay() = %d, want 1", r.LastDay())
	}
	for _, a := range agents {
		if a.TodaySoldValue() != 0 || a.TodayBoughtValue() != 0 || a.AvailableMoney() != a.Balance() {
			t.Fatalf("agent %d not reset", a.ID)
		}
	}
}

func TestRun_MultipleDaysWithJournal(t *testing.T) {
	agents := newTestPopulation(t, 20, 5)
	j := &fakeJournal{}
	r := NewRunner(agents, WithSeed(1), WithLogger(discardLogger), WithJournal(j))

	summaries, err := r.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	for i, s := range summaries {
		if s.Day != i+1 {
			t.Errorf("summary %d is for day %d", i, s.Day)
		}
	}
	var trades int
	for _, s := range summaries {
		trades += s.Trades
	}
	if len(j.days) != 3 || j.trades != trades {
		t.Errorf("journal recorded days %v with %d trades, want 3 days with %d", j.days, j.trades, trades)
	}

	// A second run continues the day count.
	more, err := r.Run(context.Background(), 1)
	if err != nil || len(more) != 1 || more[0].Day != 4 {
		t.Fatalf("second Run() = %v, %v", more, err)
	}
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	r := NewRunner(newTestPopulation(t, 5, 1), WithLogger(discardLogger))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summaries, err := r.Run(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(summaries) != 0 || r.LastDay() != 0 {
		t.Errorf("no day should run on a cancelled context")
	}
}

func TestRunDay_JournalError(t *testing.T) {
	boom := errors.New("disk full")
	r := NewRunner(newTestPopulation(t, 5, 1), WithLogger(discardLogger), WithJournal(&fakeJournal{err: boom}))

	s, err := r.RunDay(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("RunDay() error = %v, want %v", err, boom)
	}
	if s == nil {
		t.Error("the day itself completed and should still be summarised")
	}
}

func TestRunDay_DetectsLostMoney(t *testing.T) {
	agents := newTestPopulation(t, 30, 9)
	r := NewRunner(agents,
		WithSeed(2),
		WithLogger(discardLogger),
		WithTradeSink(skimmingSink{agent: agents[0]}),
	)

	// Retry a few days in case the first produces no trades.
	for day := 1; day <= 5; day++ {
		_, err := r.RunDay(context.Background(), day)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrInvariantViolation) {
			t.Fatalf("RunDay() error = %v, want ErrInvariantViolation", err)
		}
		return
	}
	t.Fatal("expected a conservation violation")
}

func TestRunDay_DeterministicWithSingleWorker(t *testing.T) {
	run := func() []int64 {
		agents := newTestPopulation(t, 25, 4)
		r := NewRunner(agents, WithSeed(99), WithWorkers(1), WithLogger(discardLogger))
		if _, err := r.Run(context.Background(), 2); err != nil {
			t.Fatalf("Run: %v", err)
		}
		out := make([]int64, len(agents))
		for i, a := range agents {
			out[i] = a.Balance()
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("agent %d balance differs between runs: %d vs %d", i+1, first[i], second[i])
		}
	}
}
