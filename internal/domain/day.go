package domain

import "time"

// GoodStats summarises one good's book after a clearing pass.
type GoodStats struct {
	Good        Good
	SellOrders  int
	BuyOrders   int
	Trades      int
	UnitsTraded int64
	Value       int64
	Failed      int
}

// DaySummary is the outcome of one generate/clear/reset cycle.
type DaySummary struct {
	Day         int
	SellOrders  int
	BuyOrders   int
	SellValue   int64 // total cost of submitted sell orders
	BuyValue    int64 // total cost of submitted buy orders
	Trades      int
	UnitsTraded int64
	TradedValue int64
	Failed      int
	TotalMoney  int64
	Goods       []GoodStats
	StartedAt   time.Time
	Duration    time.Duration
}
