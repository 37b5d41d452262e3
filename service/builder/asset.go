package builder

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pandodao/safe-pay/core"
)

// asset produces the transfer instruction moving the amount due of a payment.
type asset interface {
	transfer(ctx context.Context, payment *core.Payment, payer, recipient solana.PublicKey) (solana.Instruction, error)
}

type nativeAsset struct {
	oracle core.PriceOracle
	symbol string
}

func (a *nativeAsset) transfer(ctx context.Context, payment *core.Payment, payer, recipient solana.PublicKey) (solana.Instruction, error) {
	price, err := a.oracle.GetPrice(ctx, a.symbol)
	if err != nil {
		return nil, err
	}

	lamports := core.Lamports(payment.TotalAmountDue, price)
	if lamports == 0 {
		return nil, fmt.Errorf("%w: amount rounds to zero lamports at price %s", core.ErrValidation, price)
	}

	return system.NewTransferInstruction(lamports, payer, recipient).Build(), nil
}

type tokenAsset struct {
	ledger core.LedgerClient
	mint   solana.PublicKey
}

func (a *tokenAsset) transfer(ctx context.Context, payment *core.Payment, payer, recipient solana.PublicKey) (solana.Instruction, error) {
	decimals, err := a.ledger.GetMintDecimals(ctx, a.mint.String())
	if err != nil {
		return nil, err
	}

	source, err := a.associated(ctx, payer)
	if err != nil {
		return nil, err
	}

	destination, err := a.associated(ctx, recipient)
	if err != nil {
		return nil, err
	}

	units := core.TokenUnits(payment.TotalAmountDue, decimals)
	if units == 0 {
		return nil, fmt.Errorf("%w: amount rounds to zero base units", core.ErrValidation)
	}

	ix, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(units).
		SetDecimals(decimals).
		SetSourceAccount(source).
		SetMintAccount(a.mint).
		SetDestinationAccount(destination).
		SetOwnerAccount(payer).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}

	return ix, nil
}

func (a *tokenAsset) associated(ctx context.Context, owner solana.PublicKey) (solana.PublicKey, error) {
	addr, err := a.ledger.ResolveAssociatedAccount(ctx, owner.String(), a.mint.String())
	if err != nil {
		return solana.PublicKey{}, err
	}

	return solana.PublicKeyFromBase58(addr)
}
