package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/efreitasn/hermes/internal/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestAgent creates an agent or fails the test.
func newTestAgent(t testing.TB, id, money int64, inv map[domain.Good]int64, limit float64) *domain.Agent {
	t.Helper()
	a, err := domain.NewAgent(id, money, inv, limit, uint64(id))
	if err != nil {
		t.Fatalf("NewAgent(%d): %v", id, err)
	}
	return a
}

// submit creates and submits an order directly, reserving like an agent would.
func submit(t testing.TB, m *Market, a *domain.Agent, side domain.OrderSide, g domain.Good, amount int64) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(a, side, g, amount)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	a.Mu.Lock()
	if side == domain.OrderSideSell {
		a.Reserved[g] += amount
	} else {
		a.ReservedMoney += o.Cost
	}
	a.Mu.Unlock()
	if side == domain.OrderSideSell {
		err = m.SubmitSell(o)
	} else {
		err = m.SubmitBuy(o)
	}
	if err != nil {
		t.Fatalf("submit %s: %v", side, err)
	}
	return o
}

func totalMoney(agents []*domain.Agent) int64 {
	var sum int64
	for _, a := range agents {
		sum += a.Balance()
	}
	return sum
}

func totalGoods(agents []*domain.Agent, g domain.Good) int64 {
	var sum int64
	for _, a := range agents {
		sum += a.Holding(g)
	}
	return sum
}
