package payment

import (
	"database/sql"

	"github.com/pandodao/safe-pay/core"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

var scanColumns = []string{
	"reference",
	"user_id",
	"counter",
	"derivation_path",
	"amount",
	"currency",
	"recipient",
	"fee_amount",
	"total_amount_due",
	"memo",
	"label",
	"message",
	"status",
	"created_at",
	"confirmed_at",
	"signature",
}

func scanPayment(scanner scanner, payment *core.Payment) error {
	var confirmedAt sql.NullTime

	if err := scanner.Scan(
		&payment.Reference,
		&payment.UserID,
		&payment.Counter,
		&payment.DerivationPath,
		&payment.Amount,
		&payment.Currency,
		&payment.Recipient,
		&payment.FeeAmount,
		&payment.TotalAmountDue,
		&payment.Memo,
		&payment.Label,
		&payment.Message,
		&payment.Status,
		&payment.CreatedAt,
		&confirmedAt,
		&payment.Signature,
	); err != nil {
		return err
	}

	if confirmedAt.Valid {
		t := confirmedAt.Time
		payment.ConfirmedAt = &t
	}

	return nil
}
