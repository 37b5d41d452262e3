package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

type Currency string

const (
	CurrencyNative Currency = "native"
	CurrencyToken  Currency = "token"
)

func (c Currency) Valid() bool {
	return c == CurrencyNative || c == CurrencyToken
}

type Payment struct {
	Reference      string          `json:"reference"`
	UserID         string          `json:"user_id,omitempty"`
	Counter        uint64          `json:"counter,omitempty"`
	DerivationPath string          `json:"derivation_path,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       Currency        `json:"currency"`
	Recipient      string          `json:"recipient"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	TotalAmountDue decimal.Decimal `json:"total_amount_due"`
	Memo           string          `json:"memo,omitempty"`
	Label          string          `json:"label,omitempty"`
	Message        string          `json:"message,omitempty"`
	Status         PaymentStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	Signature      string          `json:"signature,omitempty"`
}

// SelfDerived reports whether the recipient was issued by the AddressDeriver
// rather than supplied as a merchant wallet.
func (p *Payment) SelfDerived() bool {
	return p.DerivationPath != ""
}

type PaymentStore interface {
	Create(ctx context.Context, payment *Payment) error
	Find(ctx context.Context, reference string) (*Payment, error)
	// ListPending returns pending payments created after the given time.
	ListPending(ctx context.Context, createdAfter time.Time, limit int) ([]*Payment, error)
	// ListPendingBefore returns pending payments created at or before the given time.
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*Payment, error)
	// Transition moves payment from its current (pending) status to the target
	// status. It reports false without error when the row was no longer pending.
	Transition(ctx context.Context, payment *Payment, to PaymentStatus, signature string, at time.Time) (bool, error)
}

type CreatePaymentInput struct {
	UserID         string
	MerchantWallet string
	Amount         decimal.Decimal
	Currency       Currency
	Memo           string
	Label          string
	Message        string
}

type PaymentService interface {
	Create(ctx context.Context, input *CreatePaymentInput) (*Payment, error)
	Find(ctx context.Context, reference string) (*Payment, error)
	Confirm(ctx context.Context, reference, signature string) (*Payment, error)
}
