package builder

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/asaskevich/govalidator"
	solana "github.com/gagliardetto/solana-go"
	"github.com/pandodao/safe-pay/core"
)

type Config struct {
	// Mint of the token currency.
	Mint string `valid:"required"`
	// NativeSymbol is the asset id quoted by the price oracle for the native coin.
	NativeSymbol string `valid:"required"`
}

func New(
	ledger core.LedgerClient,
	oracle core.PriceOracle,
	logger *slog.Logger,
	cfg Config,
) core.TransactionBuilder {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	mint, err := solana.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		panic(fmt.Errorf("invalid mint: %w", err))
	}

	return &builder{
		ledger: ledger,
		logger: logger.With("service", "builder"),
		assets: map[core.Currency]asset{
			core.CurrencyNative: &nativeAsset{oracle: oracle, symbol: cfg.NativeSymbol},
			core.CurrencyToken:  &tokenAsset{ledger: ledger, mint: mint},
		},
	}
}

type builder struct {
	ledger core.LedgerClient
	logger *slog.Logger
	assets map[core.Currency]asset
}

func (b *builder) Build(ctx context.Context, payment *core.Payment, payer string) ([]byte, error) {
	if payment == nil || payment.Status != core.PaymentStatusPending {
		return nil, fmt.Errorf("%w: no pending payment", core.ErrNotFound)
	}

	logger := b.logger.With("reference", payment.Reference)

	payerKey, err := solana.PublicKeyFromBase58(payer)
	if err != nil {
		return nil, fmt.Errorf("%w: account %q: %v", core.ErrValidation, payer, err)
	}

	recipient, err := solana.PublicKeyFromBase58(payment.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", core.ErrValidation, payment.Recipient, err)
	}

	reference, err := solana.PublicKeyFromBase58(payment.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: reference %q: %v", core.ErrValidation, payment.Reference, err)
	}

	a, ok := b.assets[payment.Currency]
	if !ok {
		return nil, fmt.Errorf("%w: currency %q", core.ErrValidation, payment.Currency)
	}

	transfer, err := a.transfer(ctx, payment, payerKey, recipient)
	if err != nil {
		logger.Error("asset.transfer", "currency", payment.Currency, "err", err)
		return nil, err
	}

	transfer, err = withReference(transfer, reference)
	if err != nil {
		return nil, err
	}

	blockhash, err := b.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		logger.Error("ledger.GetLatestBlockhash", "err", err)
		return nil, err
	}

	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return nil, fmt.Errorf("%w: blockhash %q: %v", core.ErrLedger, blockhash, err)
	}

	tb := solana.NewTransactionBuilder()
	if payment.Memo != "" {
		tb = tb.AddInstruction(memoInstruction(payment.Memo, payerKey))
	}

	tx, err := tb.AddInstruction(transfer).
		SetRecentBlockHash(hash).
		SetFeePayer(payerKey).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	// unsigned: one empty slot per required signer
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	return tx.MarshalBinary()
}

// Encode renders a built transaction the way wallets expect it on the wire.
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func memoInstruction(memo string, signer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(signer).SIGNER()},
		[]byte(memo),
	)
}

// withReference appends reference as the last account of ix, read-only and
// not a signer.
func withReference(ix solana.Instruction, reference solana.PublicKey) (solana.Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("instruction data: %w", err)
	}

	accounts := append(solana.AccountMetaSlice{}, ix.Accounts()...)
	accounts = append(accounts, solana.Meta(reference))

	return solana.NewInstruction(ix.ProgramID(), accounts, data), nil
}
