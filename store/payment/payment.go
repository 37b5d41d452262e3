package payment

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store/db"
)

func New(db *db.DB) core.PaymentStore {
	return &store{db: db}
}

type store struct {
	db *db.DB
}

func (s *store) Create(ctx context.Context, payment *core.Payment) error {
	b := s.db.Builder().Insert("payments").
		Columns(scanColumns...).
		Values(
			payment.Reference,
			payment.UserID,
			payment.Counter,
			payment.DerivationPath,
			payment.Amount,
			payment.Currency,
			payment.Recipient,
			payment.FeeAmount,
			payment.TotalAmountDue,
			payment.Memo,
			payment.Label,
			payment.Message,
			payment.Status,
			payment.CreatedAt.UTC(),
			nil,
			payment.Signature,
		)

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *store) Find(ctx context.Context, reference string) (*core.Payment, error) {
	b := s.db.Builder().Select(scanColumns...).
		From("payments").
		Where(sq.Eq{"reference": reference})
	row := b.RunWith(s.db).QueryRowContext(ctx)

	var payment core.Payment
	if err := scanPayment(row, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (s *store) list(ctx context.Context, cond sq.Sqlizer, limit int) ([]*core.Payment, error) {
	b := s.db.Builder().Select(scanColumns...).
		From("payments").
		Where(sq.Eq{"status": core.PaymentStatusPending}).
		Where(cond).
		OrderBy("created_at").
		Limit(uint64(limit))

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var payments []*core.Payment
	for rows.Next() {
		var payment core.Payment
		if err := scanPayment(rows, &payment); err != nil {
			return nil, err
		}

		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}

func (s *store) ListPending(ctx context.Context, createdAfter time.Time, limit int) ([]*core.Payment, error) {
	return s.list(ctx, sq.Gt{"created_at": createdAfter.UTC()}, limit)
}

func (s *store) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*core.Payment, error) {
	return s.list(ctx, sq.LtOrEq{"created_at": before.UTC()}, limit)
}

func (s *store) Transition(ctx context.Context, payment *core.Payment, to core.PaymentStatus, signature string, at time.Time) (bool, error) {
	if to == core.PaymentStatusPending {
		return false, fmt.Errorf("%w: cannot transition back to pending", core.ErrValidation)
	}

	at = at.UTC()
	b := s.db.Builder().Update("payments").
		Set("status", to).
		Where(sq.Eq{"reference": payment.Reference, "status": core.PaymentStatusPending})

	if to == core.PaymentStatusConfirmed {
		b = b.Set("signature", signature).Set("confirmed_at", at)
	}

	// writes go to master; a lost race shows up as zero affected rows
	r, err := b.RunWith(s.db.Master()).ExecContext(ctx)
	if err != nil {
		return false, err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return false, err
	}

	if n == 0 {
		return false, nil
	}

	payment.Status = to
	if to == core.PaymentStatusConfirmed {
		payment.Signature = signature
		payment.ConfirmedAt = &at
	}

	return true, nil
}
