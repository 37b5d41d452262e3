package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/pandodao/safe-pay/core"
	"github.com/shopspring/decimal"
)

var errMismatch = errors.New("transfer mismatch")

// validate checks that tx paid the amount due of payment to its recipient.
// Mismatches wrap errMismatch; anything else is a lookup failure.
func (w *Monitor) validate(ctx context.Context, payment *core.Payment, tx *core.LedgerTransaction) error {
	if tx.Failed {
		return fmt.Errorf("%w: transaction %s failed", errMismatch, tx.Signature)
	}

	switch payment.Currency {
	case core.CurrencyToken:
		credit := tx.Credit(payment.Recipient, w.cfg.Mint)
		if credit == nil {
			return fmt.Errorf("%w: recipient not credited", errMismatch)
		}

		decimals, err := w.ledger.GetMintDecimals(ctx, w.cfg.Mint)
		if err != nil {
			return err
		}

		want := core.TokenUnits(payment.TotalAmountDue, decimals)
		if diff(credit.Amount, want) > 1 {
			return fmt.Errorf("%w: received %d, want %d", errMismatch, credit.Amount, want)
		}
	case core.CurrencyNative:
		credit := tx.Credit(payment.Recipient, "")
		if credit == nil {
			return fmt.Errorf("%w: recipient not credited", errMismatch)
		}

		price, err := w.quotedPrice(ctx, payment.CreatedAt)
		if err != nil {
			return err
		}

		want := core.Lamports(payment.TotalAmountDue, price)
		floor := decimal.NewFromInt(int64(want)).Mul(decimal.NewFromInt(1).Sub(w.slippage)).Floor()
		if decimal.NewFromInt(int64(credit.Amount)).LessThan(floor) {
			return fmt.Errorf("%w: received %d lamports, want at least %s", errMismatch, credit.Amount, floor)
		}
	default:
		return fmt.Errorf("%w: unknown currency %q", errMismatch, payment.Currency)
	}

	return nil
}

func diff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}

	return b - a
}
