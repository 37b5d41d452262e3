package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle quotes an asset in USD. Implementations fall back to stale or
// static values instead of failing.
type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) (decimal.Decimal, error)
}
