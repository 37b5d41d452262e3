package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pandodao/safe-pay/core"
	"github.com/zyedidia/generic/cache"
)

type Config struct {
	Endpoint string `valid:"required,url"`
	// Commitment used when looking up reference signatures and transactions.
	Commitment string `valid:"in(processed|confirmed|finalized)"`
	// SignatureLimit caps the signatures fetched per reference.
	SignatureLimit int
}

// rpcClient is the subset of *rpc.Client the ledger needs.
type rpcClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetSignaturesForAddressWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

func New(logger *slog.Logger, cfg Config) core.LedgerClient {
	if cfg.Commitment == "" {
		cfg.Commitment = string(rpc.CommitmentConfirmed)
	}

	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return newClient(rpc.New(cfg.Endpoint), logger, cfg)
}

func newClient(rc rpcClient, logger *slog.Logger, cfg Config) *client {
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = 20
	}

	return &client{
		rpc:      rc,
		logger:   logger.With("service", "ledger"),
		cfg:      cfg,
		decimals: cache.New[string, uint8](256),
	}
}

type client struct {
	rpc    rpcClient
	logger *slog.Logger
	cfg    Config

	decimals *cache.Cache[string, uint8]
	mux      sync.Mutex
}

func (c *client) commitment() rpc.CommitmentType {
	return rpc.CommitmentType(c.cfg.Commitment)
}

func (c *client) GetLatestBlockhash(ctx context.Context) (string, error) {
	r, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("%w: get latest blockhash: %v", core.ErrLedger, err)
	}

	return r.Value.Blockhash.String(), nil
}

func (c *client) FindTransactionsByReference(ctx context.Context, reference string) ([]*core.LedgerTransaction, error) {
	ref, err := solana.PublicKeyFromBase58(reference)
	if err != nil {
		return nil, fmt.Errorf("%w: reference %q: %v", core.ErrValidation, reference, err)
	}

	limit := c.cfg.SignatureLimit
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, ref, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get signatures of %s: %v", core.ErrLedger, reference, err)
	}

	sigs = oldestFirst(sigs)
	if len(sigs) > 0 {
		c.logger.Debug("reference seen", "reference", reference, "signatures", len(sigs))
	}

	txs := make([]*core.LedgerTransaction, 0, len(sigs))
	for _, sig := range sigs {
		// a failed transaction credits nobody, its body is not needed
		if sig.Err != nil {
			txs = append(txs, failedTransaction(sig))
			continue
		}

		tx, err := c.getTransaction(ctx, sig.Signature)
		if err != nil {
			return nil, err
		}

		if tx != nil {
			txs = append(txs, tx)
		}
	}

	return txs, nil
}

func (c *client) getTransaction(ctx context.Context, sig solana.Signature) (*core.LedgerTransaction, error) {
	version := uint64(0)
	r, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment(),
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			// listed but not yet served at this commitment
			return nil, nil
		}

		return nil, fmt.Errorf("%w: get transaction %s: %v", core.ErrLedger, sig, err)
	}

	return parseTransaction(sig, r)
}

func (c *client) GetMintDecimals(ctx context.Context, mint string) (uint8, error) {
	c.mux.Lock()
	v, ok := c.decimals.Get(mint)
	c.mux.Unlock()
	if ok {
		return v, nil
	}

	key, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("%w: mint %q: %v", core.ErrValidation, mint, err)
	}

	account, err := c.rpc.GetAccountInfo(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: get mint account %s: %v", core.ErrLedger, mint, err)
	}

	if account == nil || account.Value == nil {
		return 0, fmt.Errorf("%w: mint account %s", core.ErrLedger, mint)
	}

	owner := account.Value.Owner
	if !owner.Equals(solana.TokenProgramID) && !owner.Equals(solana.Token2022ProgramID) {
		return 0, fmt.Errorf("%w: %s is not owned by a token program", core.ErrValidation, mint)
	}

	var data token.Mint
	if err := bin.NewBinDecoder(account.Value.Data.GetBinary()).Decode(&data); err != nil {
		return 0, fmt.Errorf("%w: decode mint %s: %v", core.ErrLedger, mint, err)
	}

	c.mux.Lock()
	c.decimals.Put(mint, data.Decimals)
	c.mux.Unlock()

	return data.Decimals, nil
}

func (c *client) ResolveAssociatedAccount(_ context.Context, owner, mint string) (string, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("%w: owner %q: %v", core.ErrValidation, owner, err)
	}

	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("%w: mint %q: %v", core.ErrValidation, mint, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("%w: associated account of %s: %v", core.ErrLedger, owner, err)
	}

	return ata.String(), nil
}

// oldestFirst reverses the newest first listing of the rpc.
func oldestFirst(sigs []*rpc.TransactionSignature) []*rpc.TransactionSignature {
	out := make([]*rpc.TransactionSignature, 0, len(sigs))
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i] != nil {
			out = append(out, sigs[i])
		}
	}

	return out
}

func failedTransaction(sig *rpc.TransactionSignature) *core.LedgerTransaction {
	tx := &core.LedgerTransaction{
		Signature: sig.Signature.String(),
		Slot:      sig.Slot,
		Failed:    true,
	}

	if sig.BlockTime != nil {
		tx.BlockTime = sig.BlockTime.Time().UTC()
	}

	return tx
}

func parseTransaction(sig solana.Signature, r *rpc.GetTransactionResult) (*core.LedgerTransaction, error) {
	if r == nil || r.Transaction == nil || r.Meta == nil {
		return nil, fmt.Errorf("%w: transaction %s has no body", core.ErrLedger, sig)
	}

	tx, err := r.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction %s: %v", core.ErrLedger, sig, err)
	}

	keys := accountKeys(tx, r.Meta)

	out := &core.LedgerTransaction{
		Signature: sig.String(),
		Slot:      r.Slot,
		Failed:    r.Meta.Err != nil,
		Credits:   credits(keys, r.Meta),
	}

	if r.BlockTime != nil {
		out.BlockTime = r.BlockTime.Time().UTC()
	} else {
		out.BlockTime = time.Now().UTC()
	}

	return out, nil
}

// accountKeys lists static keys followed by the writable then readonly keys
// loaded from lookup tables, which is the index space balances refer to.
func accountKeys(tx *solana.Transaction, meta *rpc.TransactionMeta) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	keys = append(keys, meta.LoadedAddresses.Writable...)
	keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	return keys
}

func credits(keys []solana.PublicKey, meta *rpc.TransactionMeta) []*core.LedgerCredit {
	var out []*core.LedgerCredit

	for i := range meta.PostBalances {
		if i >= len(keys) || i >= len(meta.PreBalances) {
			break
		}

		if post, pre := meta.PostBalances[i], meta.PreBalances[i]; post > pre {
			out = append(out, &core.LedgerCredit{
				Owner:  keys[i].String(),
				Amount: post - pre,
			})
		}
	}

	pre := make(map[uint16]uint64, len(meta.PreTokenBalances))
	for _, b := range meta.PreTokenBalances {
		pre[b.AccountIndex] = tokenAmount(b)
	}

	for _, b := range meta.PostTokenBalances {
		if b.Owner == nil {
			continue
		}

		if post := tokenAmount(b); post > pre[b.AccountIndex] {
			out = append(out, &core.LedgerCredit{
				Owner:  b.Owner.String(),
				Mint:   b.Mint.String(),
				Amount: post - pre[b.AccountIndex],
			})
		}
	}

	return out
}

func tokenAmount(b rpc.TokenBalance) uint64 {
	if b.UiTokenAmount == nil {
		return 0
	}

	v, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
	if err != nil {
		return 0
	}

	return v
}
