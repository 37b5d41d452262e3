package property

import (
	"context"
	"testing"

	"github.com/pandodao/safe-pay/store/db/dbtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.New(t))

	var price decimal.Decimal
	require.NoError(t, s.Get(ctx, "price:SOL", &price))
	assert.True(t, price.IsZero())

	require.NoError(t, s.Set(ctx, "price:SOL", decimal.RequireFromString("142.5")))
	require.NoError(t, s.Set(ctx, "price:SOL", decimal.RequireFromString("143.25")))

	require.NoError(t, s.Get(ctx, "price:SOL", &price))
	assert.Equal(t, "143.25", price.String())
}
