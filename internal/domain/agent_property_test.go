package domain

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// Feature: commodity-market, Property: Daily-limit respect
// Total committed sell value stays within limit × inventory value at day
// start, total committed buy value within limit × money at day start.

func genInventory(t *rapid.T) map[Good]int64 {
	inv := make(map[Good]int64)
	n := rapid.IntRange(0, 6).Draw(t, "numGoods")
	for i := 0; i < n; i++ {
		g := Good(rapid.IntRange(int(FirstGood), int(LastGood)).Draw(t, fmt.Sprintf("good-%d", i)))
		inv[g] = rapid.Int64Range(0, 20).Draw(t, fmt.Sprintf("qty-%d", i))
	}
	return inv
}

func TestProperty_DailyLimitRespected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		money := rapid.Int64Range(0, 5000).Draw(t, "money")
		limit := rapid.Float64Range(0.01, 1).Draw(t, "limit")
		seed := rapid.Uint64().Draw(t, "seed")
		inv := genInventory(t)

		a, err := NewAgent(7, money, inv, limit, seed)
		if err != nil {
			t.Fatalf("NewAgent: %v", err)
		}
		sellBasis := a.InventoryValue()
		sub := &recordingSubmitter{}

		for {
			cost, err := a.GenerateSellOrder(sub)
			if err != nil {
				t.Fatalf("GenerateSellOrder: %v", err)
			}
			if cost == 0 {
				break
			}
			if err := a.CheckInvariants(); err != nil {
				t.Fatalf("after sell: %v", err)
			}
		}
		for {
			cost, err := a.GenerateBuyOrder(sub)
			if err != nil {
				t.Fatalf("GenerateBuyOrder: %v", err)
			}
			if cost == 0 {
				break
			}
		}

		const eps = 1e-6
		if float64(a.TodaySoldValue()) > limit*float64(sellBasis)+eps {
			t.Fatalf("sold %d > %v × %d", a.TodaySoldValue(), limit, sellBasis)
		}
		if float64(a.TodayBoughtValue()) > limit*float64(money)+eps {
			t.Fatalf("bought %d > %v × %d", a.TodayBoughtValue(), limit, money)
		}

		var sold, bought int64
		for _, o := range sub.sells {
			sold += o.Cost
		}
		for _, o := range sub.buys {
			bought += o.Cost
		}
		if sold != a.TodaySoldValue() || bought != a.TodayBoughtValue() {
			t.Fatalf("counters (%d, %d) disagree with submitted orders (%d, %d)",
				a.TodaySoldValue(), a.TodayBoughtValue(), sold, bought)
		}
		if err := a.CheckInvariants(); err != nil {
			t.Fatalf("CheckInvariants: %v", err)
		}
	})
}

// Feature: commodity-market, Property: Idempotent reset

func TestProperty_FinishDayIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a, err := NewAgent(1, rapid.Int64Range(0, 1000).Draw(t, "money"), genInventory(t),
			rapid.Float64Range(0.01, 1).Draw(t, "limit"), rapid.Uint64().Draw(t, "seed"))
		if err != nil {
			t.Fatalf("NewAgent: %v", err)
		}
		sub := &recordingSubmitter{}
		orders := rapid.IntRange(0, 10).Draw(t, "orders")
		for i := 0; i < orders; i++ {
			_, _ = a.GenerateSellOrder(sub)
			_, _ = a.GenerateBuyOrder(sub)
		}

		a.FinishDay()
		money, holdings := a.Balance(), a.Holdings()
		a.FinishDay()

		if a.Balance() != money || len(a.Holdings()) != len(holdings) {
			t.Fatal("second FinishDay changed balances")
		}
		if len(a.Reserved) != 0 || a.ReservedMoney != 0 || a.TodaySoldValue() != 0 || a.TodayBoughtValue() != 0 {
			t.Fatal("FinishDay left reservations or counters behind")
		}
	})
}
