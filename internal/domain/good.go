package domain

import "fmt"

// Good identifies one of the 26 tradeable commodities, 'A' through 'Z'.
type Good byte

const (
	FirstGood Good = 'A'
	LastGood  Good = 'Z'

	// NumGoods is the size of the price table.
	NumGoods = int(LastGood-FirstGood) + 1
)

// prices is built once at startup and never mutated afterwards.
var prices = func() [NumGoods]int64 {
	var p [NumGoods]int64
	for i := range p {
		p[i] = int64(i + 1)
	}
	return p
}()

var allGoods = func() []Good {
	goods := make([]Good, 0, NumGoods)
	for g := FirstGood; g <= LastGood; g++ {
		goods = append(goods, g)
	}
	return goods
}()

// Valid reports whether g is in the price table.
func (g Good) Valid() bool {
	return g >= FirstGood && g <= LastGood
}

// Index returns g's zero-based position in the price table.
func (g Good) Index() int {
	return int(g - FirstGood)
}

func (g Good) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Good(%d)", byte(g))
	}
	return string(rune(g))
}

// Price returns the fixed unit price of g, or 0 for an unknown good.
func Price(g Good) int64 {
	if !g.Valid() {
		return 0
	}
	return prices[g.Index()]
}

// AllGoods returns every good in ascending price order. The returned
// slice must not be modified.
func AllGoods() []Good {
	return allGoods
}

// ParseGood converts a one-letter symbol into a Good.
func ParseGood(s string) (Good, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGood, s)
	}
	g := Good(s[0])
	if !g.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGood, s)
	}
	return g, nil
}
