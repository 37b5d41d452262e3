package core

import "github.com/shopspring/decimal"

// LamportsPerCoin is the number of base units in one native coin.
const LamportsPerCoin = 1_000_000_000

// TokenUnits converts amount to base units of a mint with the given
// decimals, truncating any finer precision.
func TokenUnits(amount decimal.Decimal, decimals uint8) uint64 {
	return uint64(amount.Shift(int32(decimals)).Truncate(0).IntPart())
}

// Lamports converts a USD amount into native base units at price USD per coin,
// rounding down.
func Lamports(usd, price decimal.Decimal) uint64 {
	if !price.IsPositive() {
		return 0
	}

	return uint64(usd.Div(price).Shift(9).Floor().IntPart())
}
