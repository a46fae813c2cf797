package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// OrderSubmitter accepts orders into a day's books. The engine's Market
// implements it.
type OrderSubmitter interface {
	SubmitSell(o *Order) error
	SubmitBuy(o *Order) error
}

// Agent is a trading participant. Money and inventory are mutated only by
// settlement; the daily counters only by the agent's own generators.
type Agent struct {
	ID         int64
	DailyLimit float64 // fraction in (0, 1] of money (buy) or inventory value (sell)

	Mu            sync.Mutex // guards the fields below; held by settlement
	Money         int64
	Inventory     map[Good]int64
	Reserved      map[Good]int64 // units committed to open sell orders today
	ReservedMoney int64          // money committed to open buy orders today

	genMu            sync.Mutex // serialises generator calls and guards the fields below
	rng              *rand.Rand
	todaySoldValue   int64
	todayBoughtValue int64
}

// NewAgent creates an agent with its own copy of the starting inventory.
// seed drives the agent's private random source.
func NewAgent(id, money int64, inventory map[Good]int64, dailyLimit float64, seed uint64) (*Agent, error) {
	if money < 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("agent %d: money must be >= 0", id)}
	}
	if !(dailyLimit > 0 && dailyLimit <= 1) {
		return nil, &ValidationError{Message: fmt.Sprintf("agent %d: daily limit must be in (0, 1], got %v", id, dailyLimit)}
	}
	inv := make(map[Good]int64, len(inventory))
	for g, qty := range inventory {
		if !g.Valid() {
			return nil, fmt.Errorf("agent %d: %w: %v", id, ErrUnknownGood, g)
		}
		if qty < 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("agent %d: quantity of %v must be >= 0", id, g)}
		}
		if qty > 0 {
			inv[g] = qty
		}
	}
	return &Agent{
		ID:         id,
		DailyLimit: dailyLimit,
		Money:      money,
		Inventory:  inv,
		Reserved:   make(map[Good]int64),
		rng:        rand.New(rand.NewPCG(seed, uint64(id))),
	}, nil
}

// GenerateSellOrder submits one sell order within the remaining daily sell
// budget and returns its cost. It returns 0 when nothing more can be sold
// today. Units are reserved before submission.
func (a *Agent) GenerateSellOrder(m OrderSubmitter) (int64, error) {
	a.genMu.Lock()
	defer a.genMu.Unlock()

	a.Mu.Lock()
	remaining := a.DailyLimit*float64(a.inventoryValueLocked()) - float64(a.todaySoldValue)
	eligible := make([]Good, 0, NumGoods)
	for _, g := range allGoods {
		if a.availableQuantityLocked(g) > 0 && float64(Price(g)) <= remaining {
			eligible = append(eligible, g)
		}
	}
	if len(eligible) == 0 {
		a.Mu.Unlock()
		return 0, nil
	}
	good := eligible[a.rng.IntN(len(eligible))]
	maxAmount := min(a.availableQuantityLocked(good), int64(math.Floor(remaining/float64(Price(good)))))
	amount := 1 + a.rng.Int64N(maxAmount)
	a.Reserved[good] += amount
	a.Mu.Unlock()

	order, err := NewOrder(a, OrderSideSell, good, amount)
	if err == nil {
		err = m.SubmitSell(order)
	}
	if err != nil {
		a.Mu.Lock()
		a.Reserved[good] -= amount
		a.Mu.Unlock()
		return 0, fmt.Errorf("agent %d: submit sell order: %w", a.ID, err)
	}

	a.todaySoldValue += order.Cost
	return order.Cost, nil
}

// GenerateBuyOrder submits one buy order within the remaining daily buy
// budget and returns its cost, or 0 when no good is affordable. The cost
// is reserved against the agent's money until the day ends.
func (a *Agent) GenerateBuyOrder(m OrderSubmitter) (int64, error) {
	a.genMu.Lock()
	defer a.genMu.Unlock()

	a.Mu.Lock()
	remaining := a.DailyLimit*float64(a.Money) - float64(a.todayBoughtValue)
	if avail := float64(a.Money - a.ReservedMoney); avail < remaining {
		remaining = avail
	}
	eligible := make([]Good, 0, NumGoods)
	for _, g := range allGoods {
		if float64(Price(g)) <= remaining {
			eligible = append(eligible, g)
		}
	}
	if len(eligible) == 0 {
		a.Mu.Unlock()
		return 0, nil
	}
	good := eligible[a.rng.IntN(len(eligible))]
	price := Price(good)
	maxAmount := int64(math.Floor(remaining / float64(price)))
	amount := 1 + a.rng.Int64N(maxAmount)
	a.ReservedMoney += price * amount
	a.Mu.Unlock()

	order, err := NewOrder(a, OrderSideBuy, good, amount)
	if err == nil {
		err = m.SubmitBuy(order)
	}
	if err != nil {
		a.Mu.Lock()
		a.ReservedMoney -= price * amount
		a.Mu.Unlock()
		return 0, fmt.Errorf("agent %d: submit buy order: %w", a.ID, err)
	}

	a.todayBoughtValue += order.Cost
	return order.Cost, nil
}

// FinishDay drops the day's reservations and resets the daily counters.
// Calling it more than once is harmless.
func (a *Agent) FinishDay() {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.Mu.Lock()
	defer a.Mu.Unlock()

	clear(a.Reserved)
	a.ReservedMoney = 0
	a.todaySoldValue = 0
	a.todayBoughtValue = 0
}

// Balance returns the agent's money.
func (a *Agent) Balance() int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.Money
}

// Holding returns the quantity of g the agent owns.
func (a *Agent) Holding(g Good) int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.Inventory[g]
}

// Holdings returns a copy of the non-zero inventory entries.
func (a *Agent) Holdings() map[Good]int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	out := make(map[Good]int64, len(a.Inventory))
	for g, qty := range a.Inventory {
		if qty != 0 {
			out[g] = qty
		}
	}
	return out
}

// InventoryValue returns Σ Price(g) × inventory[g].
func (a *Agent) InventoryValue() int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.inventoryValueLocked()
}

// AvailableQuantity returns the unreserved quantity of g.
func (a *Agent) AvailableQuantity(g Good) int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.availableQuantityLocked(g)
}

// AvailableMoney returns the money not committed to open buy orders.
func (a *Agent) AvailableMoney() int64 {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.Money - a.ReservedMoney
}

// TodaySoldValue returns the value committed to sell orders today.
func (a *Agent) TodaySoldValue() int64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.todaySoldValue
}

// TodayBoughtValue returns the value committed to buy orders today.
func (a *Agent) TodayBoughtValue() int64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.todayBoughtValue
}

// CheckInvariants reports negative balances and over-reservation as a
// wrapped ErrInvariantViolation.
func (a *Agent) CheckInvariants() error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	if a.Money < 0 {
		return fmt.Errorf("%w: agent %d has negative money %d", ErrInvariantViolation, a.ID, a.Money)
	}
	if a.ReservedMoney < 0 || a.ReservedMoney > a.Money {
		return fmt.Errorf("%w: agent %d reserved money %d outside [0, %d]", ErrInvariantViolation, a.ID, a.ReservedMoney, a.Money)
	}
	for _, g := range allGoods {
		qty, reserved := a.Inventory[g], a.Reserved[g]
		if qty < 0 {
			return fmt.Errorf("%w: agent %d has negative inventory %d of %v", ErrInvariantViolation, a.ID, qty, g)
		}
		if reserved < 0 || reserved > qty {
			return fmt.Errorf("%w: agent %d reserved %d of %v outside [0, %d]", ErrInvariantViolation, a.ID, reserved, g, qty)
		}
	}
	return nil
}

func (a *Agent) inventoryValueLocked() int64 {
	var total int64
	for g, qty := range a.Inventory {
		total += Price(g) * qty
	}
	return total
}

func (a *Agent) availableQuantityLocked(g Good) int64 {
	return a.Inventory[g] - a.Reserved[g]
}
