package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// OrderSide indicates whether an order sells or buys goods.
type OrderSide string

const (
	OrderSideSell OrderSide = "sell"
	OrderSideBuy  OrderSide = "buy"
)

// Order is an agent's intent to sell or buy an exact amount of one good.
// Everything except the fill flag is immutable after NewOrder returns.
type Order struct {
	OrderID   string
	Agent     *Agent
	Side      OrderSide
	Good      Good
	Amount    int64
	Cost      int64 // Price(Good) × Amount
	CreatedAt time.Time

	filled atomic.Bool
}

// NewOrder builds an unfilled order for the given agent.
func NewOrder(agent *Agent, side OrderSide, good Good, amount int64) (*Order, error) {
	if !good.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownGood, good)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if side != OrderSideSell && side != OrderSideBuy {
		return nil, &ValidationError{Message: fmt.Sprintf("side must be 'sell' or 'buy', got %q", side)}
	}
	return &Order{
		OrderID:   uuid.New().String(),
		Agent:     agent,
		Side:      side,
		Good:      good,
		Amount:    amount,
		Cost:      Price(good) * amount,
		CreatedAt: time.Now(),
	}, nil
}

// MarkFilled flips the fill flag. The transition happens at most once;
// later calls return ErrOrderAlreadyFilled.
func (o *Order) MarkFilled() error {
	if !o.filled.CompareAndSwap(false, true) {
		return ErrOrderAlreadyFilled
	}
	return nil
}

// Filled reports whether the order has taken part in a trade.
func (o *Order) Filled() bool {
	return o.filled.Load()
}

// AgentID returns the owning agent's ID, or -1 for an order without one.
func (o *Order) AgentID() int64 {
	if o.Agent == nil {
		return -1
	}
	return o.Agent.ID
}
