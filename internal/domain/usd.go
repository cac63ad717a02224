package domain

import "github.com/shopspring/decimal"

// USDDecimals is the fixed-point precision of on-chain dollar amounts.
// All monetary fields are integers scaled by 10^6 ("atomic USD").
const USDDecimals = 6

// USDScale is 10^USDDecimals.
const USDScale int64 = 1_000_000

// USD is a dollar amount in atomic units (10^-6 USD). Signed, so it can
// represent PnL deltas as well as sizes and fees.
type USD int64

// String renders the amount as a plain decimal string, e.g. "1234.560000".
func (u USD) String() string {
	return decimal.New(int64(u), -USDDecimals).StringFixed(USDDecimals)
}

// Float64 returns the amount in whole dollars. Display use only; all
// accounting stays in atomic units.
func (u USD) Float64() float64 {
	f, _ := decimal.New(int64(u), -USDDecimals).Float64()
	return f
}

// Raw returns the underlying atomic integer.
func (u USD) Raw() int64 {
	return int64(u)
}
