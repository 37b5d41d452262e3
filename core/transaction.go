package core

import "context"

type TransactionBuilder interface {
	// Build returns the unsigned wire transaction paying payment from payer.
	Build(ctx context.Context, payment *Payment, payer string) ([]byte, error)
}
