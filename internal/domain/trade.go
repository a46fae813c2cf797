package domain

import "time"

// Trade records one settled sell/buy pair.
type Trade struct {
	TradeID     string
	Day         int
	Good        Good
	Amount      int64
	Cost        int64
	SellerID    int64
	BuyerID     int64
	SellOrderID string
	BuyOrderID  string
	ExecutedAt  time.Time
}
