package builder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/pandodao/safe-pay/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	core.LedgerClient
	blockhash string
	decimals  uint8
	err       error
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (string, error) {
	return f.blockhash, f.err
}

func (f *fakeLedger) GetMintDecimals(context.Context, string) (uint8, error) {
	return f.decimals, f.err
}

func (f *fakeLedger) ResolveAssociatedAccount(_ context.Context, owner, mint string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	ata, _, err := solana.FindAssociatedTokenAddress(solana.MustPublicKeyFromBase58(owner), solana.MustPublicKeyFromBase58(mint))
	return ata.String(), err
}

type fixedOracle decimal.Decimal

func (o fixedOracle) GetPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Decimal(o), nil
}

var mint = solana.NewWallet().PublicKey()

func newTestBuilder(ledger *fakeLedger) core.TransactionBuilder {
	return New(ledger, fixedOracle(decimal.NewFromInt(150)), slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Mint:         mint.String(),
		NativeSymbol: "solana",
	})
}

func newPayment(currency core.Currency, memo string) *core.Payment {
	return &core.Payment{
		Reference:      solana.NewWallet().PublicKey().String(),
		Recipient:      solana.NewWallet().PublicKey().String(),
		Amount:         decimal.RequireFromString("5"),
		TotalAmountDue: decimal.RequireFromString("5.445"),
		Currency:       currency,
		Memo:           memo,
		Status:         core.PaymentStatusPending,
	}
}

func decode(t *testing.T, raw []byte) *solana.Transaction {
	t.Helper()
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

func blockhash() string {
	return solana.HashFromBytes(bytes.Repeat([]byte{9}, 32)).String()
}

// assertReference checks the reference appears exactly once, as the last
// account of the last instruction, neither signer nor writable.
func assertReference(t *testing.T, tx *solana.Transaction, reference string) {
	t.Helper()

	keys := tx.Message.AccountKeys
	idx := -1
	for i, k := range keys {
		if k.String() == reference {
			assert.Equal(t, -1, idx, "reference listed twice")
			idx = i
		}
	}
	require.NotEqual(t, -1, idx, "reference missing")

	header := tx.Message.Header
	assert.GreaterOrEqual(t, idx, int(header.NumRequiredSignatures), "reference is a signer")
	assert.GreaterOrEqual(t, idx, len(keys)-int(header.NumReadonlyUnsignedAccounts), "reference is writable")

	last := tx.Message.Instructions[len(tx.Message.Instructions)-1]
	assert.Equal(t, uint16(idx), last.Accounts[len(last.Accounts)-1])
}

func TestBuildToken(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	b := newTestBuilder(&fakeLedger{blockhash: blockhash(), decimals: 6})

	for _, memo := range []string{"", "order #42"} {
		t.Run("memo="+memo, func(t *testing.T) {
			payment := newPayment(core.CurrencyToken, memo)

			raw, err := b.Build(context.Background(), payment, payer.String())
			require.NoError(t, err)

			tx := decode(t, raw)
			ixs := tx.Message.Instructions

			if memo == "" {
				require.Len(t, ixs, 1)
			} else {
				require.Len(t, ixs, 2)
				assert.Equal(t, solana.MemoProgramID, tx.Message.AccountKeys[ixs[0].ProgramIDIndex])
				assert.Equal(t, []byte(memo), []byte(ixs[0].Data))
			}

			transfer := ixs[len(ixs)-1]
			assert.Equal(t, solana.TokenProgramID, tx.Message.AccountKeys[transfer.ProgramIDIndex])
			// TransferChecked: tag, amount, decimals
			data := []byte(transfer.Data)
			assert.Equal(t, byte(12), data[0])
			assert.Equal(t, uint64(5_445_000), binary.LittleEndian.Uint64(data[1:9]))
			assert.Equal(t, byte(6), data[9])

			assertReference(t, tx, payment.Reference)

			assert.Equal(t, payer, tx.Message.AccountKeys[0], "payer pays fees")
			assert.Equal(t, blockhash(), tx.Message.RecentBlockhash.String())
			require.Len(t, tx.Signatures, int(tx.Message.Header.NumRequiredSignatures))
			for _, sig := range tx.Signatures {
				assert.Equal(t, solana.Signature{}, sig)
			}
		})
	}
}

func TestBuildNative(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	payment := newPayment(core.CurrencyNative, "")

	raw, err := newTestBuilder(&fakeLedger{blockhash: blockhash()}).Build(context.Background(), payment, payer.String())
	require.NoError(t, err)

	tx := decode(t, raw)
	require.Len(t, tx.Message.Instructions, 1)

	transfer := tx.Message.Instructions[0]
	assert.Equal(t, solana.SystemProgramID, tx.Message.AccountKeys[transfer.ProgramIDIndex])
	// system Transfer: u32 tag 2, u64 lamports; 5.445 USD at 150 USD per coin
	data := []byte(transfer.Data)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(36_300_000), binary.LittleEndian.Uint64(data[4:12]))

	assertReference(t, tx, payment.Reference)

	_, err = base64.StdEncoding.DecodeString(Encode(raw))
	assert.NoError(t, err)
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey().String()
	b := newTestBuilder(&fakeLedger{blockhash: blockhash(), decimals: 6})

	_, err := b.Build(ctx, nil, payer)
	assert.ErrorIs(t, err, core.ErrNotFound)

	confirmed := newPayment(core.CurrencyToken, "")
	confirmed.Status = core.PaymentStatusConfirmed
	_, err = b.Build(ctx, confirmed, payer)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = b.Build(ctx, newPayment(core.CurrencyToken, ""), "not base58!")
	assert.ErrorIs(t, err, core.ErrValidation)

	down := newTestBuilder(&fakeLedger{err: core.ErrLedger})
	_, err = down.Build(ctx, newPayment(core.CurrencyToken, ""), payer)
	assert.ErrorIs(t, err, core.ErrLedger)
}
