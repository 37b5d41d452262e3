package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	solana "github.com/gagliardetto/solana-go"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store"
	"github.com/shopspring/decimal"
)

const maxMemoLength = 200

type Config struct {
	FeeRate  string        `valid:"required,float"`
	FixedFee string        `valid:"required,float"`
	TTL      time.Duration `valid:"required"`
	// Label is shown by wallets when the payment has none of its own.
	Label string
}

func New(
	payments core.PaymentStore,
	deriver core.AddressDeriver,
	notifier core.Notifier,
	logger *slog.Logger,
	cfg Config,
) core.PaymentService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &service{
		payments: payments,
		deriver:  deriver,
		notifier: notifier,
		logger:   logger.With("service", "payment"),
		feeRate:  decimal.RequireFromString(cfg.FeeRate),
		fixedFee: decimal.RequireFromString(cfg.FixedFee),
		ttl:      cfg.TTL,
		label:    cfg.Label,
		now:      time.Now,
	}
}

type service struct {
	payments core.PaymentStore
	deriver  core.AddressDeriver
	notifier core.Notifier
	logger   *slog.Logger

	feeRate  decimal.Decimal
	fixedFee decimal.Decimal
	ttl      time.Duration
	label    string
	now      func() time.Time
}

// Fee returns the fee charged on amount and the resulting total due.
func Fee(amount, rate, fixed decimal.Decimal) (fee, total decimal.Decimal) {
	fee = amount.Mul(rate).Add(fixed)
	return fee, amount.Add(fee)
}

func (s *service) Create(ctx context.Context, input *core.CreatePaymentInput) (*core.Payment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	reference, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}

	fee, total := Fee(input.Amount, s.feeRate, s.fixedFee)

	payment := &core.Payment{
		Reference:      reference.PublicKey().String(),
		UserID:         input.UserID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Recipient:      input.MerchantWallet,
		FeeAmount:      fee,
		TotalAmountDue: total,
		Memo:           input.Memo,
		Label:          input.Label,
		Message:        input.Message,
		Status:         core.PaymentStatusPending,
		CreatedAt:      s.now().UTC(),
	}

	if payment.Label == "" {
		payment.Label = s.label
	}

	if payment.Recipient == "" {
		// the counter is committed before the address comes back
		addr, err := s.deriver.Next(ctx, input.UserID)
		if err != nil {
			s.logger.Error("deriver.Next", "user", input.UserID, "err", err)
			return nil, err
		}

		payment.Recipient = addr.Address
		payment.Counter = addr.Counter
		payment.DerivationPath = addr.Path
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		s.logger.Error("payments.Create", "reference", payment.Reference, "err", err)
		return nil, err
	}

	s.logger.Info("payment created",
		"reference", payment.Reference,
		"currency", payment.Currency,
		"total", payment.TotalAmountDue,
	)

	return payment, nil
}

func validateInput(input *core.CreatePaymentInput) error {
	if input == nil {
		return fmt.Errorf("%w: empty input", core.ErrValidation)
	}

	if !input.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", core.ErrValidation)
	}

	if !input.Currency.Valid() {
		return fmt.Errorf("%w: unknown currency %q", core.ErrValidation, input.Currency)
	}

	if utf8.RuneCountInString(input.Memo) > maxMemoLength {
		return fmt.Errorf("%w: memo longer than %d characters", core.ErrValidation, maxMemoLength)
	}

	if input.MerchantWallet != "" {
		if _, err := solana.PublicKeyFromBase58(input.MerchantWallet); err != nil {
			return fmt.Errorf("%w: merchant wallet: %v", core.ErrValidation, err)
		}
	} else if input.UserID == "" {
		return fmt.Errorf("%w: user id or merchant wallet required", core.ErrValidation)
	}

	return nil
}

func (s *service) Find(ctx context.Context, reference string) (*core.Payment, error) {
	payment, err := s.find(ctx, reference)
	if err != nil {
		return nil, err
	}

	if s.expired(payment) {
		return payment, fmt.Errorf("%w: %s", core.ErrExpired, reference)
	}

	return payment, nil
}

func (s *service) find(ctx context.Context, reference string) (*core.Payment, error) {
	payment, err := s.payments.Find(ctx, reference)
	if err != nil {
		if store.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: payment %s", core.ErrNotFound, reference)
		}

		s.logger.Error("payments.Find", "reference", reference, "err", err)
		return nil, err
	}

	return payment, nil
}

// expired reports payments already swept and pending ones the monitor has
// not reached yet.
func (s *service) expired(payment *core.Payment) bool {
	switch payment.Status {
	case core.PaymentStatusExpired:
		return true
	case core.PaymentStatusPending:
		return s.now().Sub(payment.CreatedAt) > s.ttl
	default:
		return false
	}
}

func (s *service) Confirm(ctx context.Context, reference, signature string) (*core.Payment, error) {
	if _, err := solana.SignatureFromBase58(signature); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", core.ErrValidation, err)
	}

	payment, err := s.find(ctx, reference)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("reference", reference)

	ok, err := s.payments.Transition(ctx, payment, core.PaymentStatusConfirmed, signature, s.now())
	if err != nil {
		logger.Error("payments.Transition", "err", err)
		return nil, err
	}

	if !ok {
		// someone else moved it first; report what they left behind
		if payment, err = s.find(ctx, reference); err != nil {
			return nil, err
		}

		switch payment.Status {
		case core.PaymentStatusConfirmed:
			return payment, nil
		case core.PaymentStatusExpired:
			return payment, fmt.Errorf("%w: %s", core.ErrExpired, reference)
		default:
			return payment, fmt.Errorf("%w: payment %s is %s", core.ErrConflict, reference, payment.Status)
		}
	}

	logger.Info("payment confirmed manually", "signature", signature)

	go func(ctx context.Context) {
		if err := s.notifier.OnConfirmed(ctx, payment); err != nil {
			logger.Error("notifier.OnConfirmed", "err", err)
		}
	}(context.WithoutCancel(ctx))

	return payment, nil
}
