package deriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asaskevich/govalidator"
	solana "github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store"
)

const (
	// PathPrefix is the BIP-44 purpose and Solana coin type.
	PathPrefix = "m/44'/501'"

	purpose  = 44
	coinType = 501
	change   = 0

	maxRange = 1000
)

type Config struct {
	Secret      string `valid:"required,minstringlength(32)"`
	MaxAttempts int
}

func New(
	trackings core.UserTrackingStore,
	logger *slog.Logger,
	cfg Config,
) core.AddressDeriver {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	seeds, err := lru.New[string, []byte](256)
	if err != nil {
		panic(err)
	}

	return &deriver{
		trackings: trackings,
		logger:    logger.With("service", "deriver"),
		secret:    []byte(cfg.Secret),
		attempts:  cfg.MaxAttempts,
		seeds:     seeds,
	}
}

type deriver struct {
	trackings core.UserTrackingStore
	logger    *slog.Logger
	secret    []byte
	attempts  int

	// opened seeds keyed by their sealed form
	seeds *lru.Cache[string, []byte]
}

func (d *deriver) Next(ctx context.Context, userID string) (*core.DerivedAddress, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", core.ErrValidation)
	}

	logger := d.logger.With("user", userID)

	tracking, err := d.getOrInit(ctx, userID)
	if err != nil {
		logger.Error("getOrInit", "err", err)
		return nil, err
	}

	seed, err := d.openSeed(tracking)
	if err != nil {
		logger.Error("openSeed", "err", err)
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if tracking.Counter+1 >= uint64(hardened) {
			return nil, fmt.Errorf("%w: address space of %s exhausted", core.ErrDerivation, userID)
		}

		counter, err := d.trackings.IncrementCounter(ctx, userID, tracking.Counter)
		if err == nil {
			return derive(seed, userID, counter)
		}

		if !errors.Is(err, core.ErrConflict) || attempt >= d.attempts {
			logger.Error("trackings.IncrementCounter", "attempt", attempt, "err", err)
			return nil, err
		}

		logger.Debug("counter race lost, retry", "counter", tracking.Counter, "attempt", attempt)

		if tracking, err = d.trackings.Find(ctx, userID); err != nil {
			logger.Error("trackings.Find", "err", err)
			return nil, err
		}
	}
}

func (d *deriver) Range(ctx context.Context, userID string, start, end uint64) ([]*core.DerivedAddress, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("%w: invalid counter range [%d, %d]", core.ErrValidation, start, end)
	}

	if end-start >= maxRange {
		return nil, fmt.Errorf("%w: range wider than %d", core.ErrValidation, maxRange)
	}

	tracking, err := d.trackings.Find(ctx, userID)
	if err != nil {
		if store.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
		}

		return nil, err
	}

	seed, err := d.openSeed(tracking)
	if err != nil {
		return nil, err
	}

	addresses := make([]*core.DerivedAddress, 0, end-start+1)
	for counter := start; counter <= end; counter++ {
		addr, err := derive(seed, userID, counter)
		if err != nil {
			return nil, err
		}

		addresses = append(addresses, addr)
	}

	return addresses, nil
}

func (d *deriver) getOrInit(ctx context.Context, userID string) (*core.UserTracking, error) {
	tracking, err := d.trackings.Find(ctx, userID)
	if err == nil {
		return tracking, nil
	}

	if !store.IsErrNotFound(err) {
		return nil, err
	}

	seed, err := newSeed()
	if err != nil {
		return nil, err
	}

	sealed, err := seal(d.secret, userID, seed)
	if err != nil {
		return nil, err
	}

	return d.trackings.GetOrInit(ctx, userID, sealed)
}

func (d *deriver) openSeed(tracking *core.UserTracking) ([]byte, error) {
	if seed, ok := d.seeds.Get(tracking.Seed); ok {
		return seed, nil
	}

	seed, err := open(d.secret, tracking.UserID, tracking.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: open seed of %s: %v", core.ErrDerivation, tracking.UserID, err)
	}

	d.seeds.Add(tracking.Seed, seed)
	return seed, nil
}

// Path renders the derivation path of the counter-th address of userID.
func Path(userID string, counter uint64) string {
	return fmt.Sprintf("%s/%s/%d/%d", PathPrefix, userID, change, counter)
}

func derive(seed []byte, userID string, counter uint64) (*core.DerivedAddress, error) {
	if counter >= uint64(hardened) {
		return nil, fmt.Errorf("%w: counter %d out of range", core.ErrDerivation, counter)
	}

	n, err := masterNode(seed).derive(purpose, coinType, userIndex(userID), change, uint32(counter))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDerivation, err)
	}

	key := solana.PrivateKey(n.privateKey())
	return &core.DerivedAddress{
		Address: key.PublicKey().String(),
		Counter: counter,
		Path:    Path(userID, counter),
	}, nil
}
