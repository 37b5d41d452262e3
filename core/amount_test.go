package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTokenUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     uint64
	}{
		{"5.445", 6, 5_445_000},
		{"0.0000019", 6, 1},
		{"1", 0, 1},
		{"12.5", 9, 12_500_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenUnits(decimal.RequireFromString(tt.amount), tt.decimals))
		})
	}
}

func TestLamports(t *testing.T) {
	assert.Equal(t, uint64(36_300_000), Lamports(decimal.RequireFromString("5.445"), decimal.NewFromInt(150)))
	// 1/3 coin rounds down
	assert.Equal(t, uint64(333_333_333), Lamports(decimal.NewFromInt(1), decimal.NewFromInt(3)))
	assert.Zero(t, Lamports(decimal.NewFromInt(1), decimal.Zero))
}
