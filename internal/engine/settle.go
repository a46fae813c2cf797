package engine

import (
	"fmt"

	"github.com/efreitasn/hermes/internal/domain"
)

// ExecuteTrade moves amount units of good from seller to buyer and
// Price(good) × amount money from buyer to seller, releasing the
// reservations the matched orders placed on both agents.
//
// Both agent locks are held for the whole transfer. They are always
// acquired in ascending ID order regardless of role, so two trades
// between the same pair with swapped roles cannot deadlock.
//
// A failed precondition leaves both agents untouched and returns
// ErrInsufficientHoldings or ErrInsufficientBalance.
func ExecuteTrade(seller, buyer *domain.Agent, good domain.Good, amount int64) error {
	if seller == nil || buyer == nil {
		return domain.ErrAgentNotFound
	}
	if seller == buyer || seller.ID == buyer.ID {
		return fmt.Errorf("%w: agent %d", domain.ErrSelfTrade, seller.ID)
	}
	if !good.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrUnknownGood, good)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}
	cost := domain.Price(good) * amount

	first, second := seller, buyer
	if buyer.ID < seller.ID {
		first, second = buyer, seller
	}
	first.Mu.Lock()
	defer first.Mu.Unlock()
	second.Mu.Lock()
	defer second.Mu.Unlock()

	if have := seller.Inventory[good]; have < amount {
		return fmt.Errorf("%w: seller %d has %d of %v, needs %d",
			domain.ErrInsufficientHoldings, seller.ID, have, good, amount)
	}
	if buyer.Money < cost {
		return fmt.Errorf("%w: buyer %d has %d, needs %d",
			domain.ErrInsufficientBalance, buyer.ID, buyer.Money, cost)
	}

	seller.Inventory[good] -= amount
	if seller.Inventory[good] == 0 {
		delete(seller.Inventory, good)
	}
	seller.Money += cost
	if r := seller.Reserved[good] - amount; r > 0 {
		seller.Reserved[good] = r
	} else {
		delete(seller.Reserved, good)
	}

	buyer.Inventory[good] += amount
	buyer.Money -= cost
	buyer.ReservedMoney = max(buyer.ReservedMoney-cost, 0)

	return nil
}
