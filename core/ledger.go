package core

import (
	"context"
	"time"
)

// LedgerCredit is the balance an owner gained in a transaction, in base units.
// Mint is empty for the native asset.
type LedgerCredit struct {
	Owner  string
	Mint   string
	Amount uint64
}

type LedgerTransaction struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Failed    bool
	Credits   []*LedgerCredit
}

// Credit returns the credit of owner in mint, nil if the owner gained nothing.
func (tx *LedgerTransaction) Credit(owner, mint string) *LedgerCredit {
	for _, c := range tx.Credits {
		if c.Owner == owner && c.Mint == mint {
			return c
		}
	}

	return nil
}

type LedgerClient interface {
	GetLatestBlockhash(ctx context.Context) (string, error)
	// FindTransactionsByReference returns the transactions referencing the given
	// account, oldest first. Anyone can reference an account, so callers must not
	// assume the first one is the payment.
	FindTransactionsByReference(ctx context.Context, reference string) ([]*LedgerTransaction, error)
	GetMintDecimals(ctx context.Context, mint string) (uint8, error)
	ResolveAssociatedAccount(ctx context.Context, owner, mint string) (string, error)
}
