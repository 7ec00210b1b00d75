package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the precision every stored amount is kept at. Budgets,
// prices and bids must not carry more.
const MoneyPlaces = 2

// ExactMoney reports whether d is representable at MoneyPlaces
func ExactMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}
