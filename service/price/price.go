package price

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
	"github.com/pandodao/safe-pay/core"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultEndpoint = "https://api.coingecko.com/api/v3"
	vsCurrency      = "usd"
	maxBackoff      = 5 * time.Minute
)

type Config struct {
	Endpoint string        `valid:"required,url"`
	TTL      time.Duration `valid:"required"`
	Timeout  time.Duration
	// Backoff is the pause after a failed fetch, doubled on every further
	// failure.
	Backoff time.Duration
	// Fallbacks are static USD prices per asset used when nothing better is known.
	Fallbacks map[string]string
}

func New(
	properties core.PropertyStore,
	logger *slog.Logger,
	cfg Config,
) core.PriceOracle {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	fallbacks := make(map[string]decimal.Decimal, len(cfg.Fallbacks))
	for asset, v := range cfg.Fallbacks {
		fallbacks[asset] = decimal.RequireFromString(v)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}

	return &oracle{
		properties: properties,
		logger:     logger.With("service", "price"),
		client:     resty.New().SetBaseURL(cfg.Endpoint).SetTimeout(cfg.Timeout),
		ttl:        cfg.TTL,
		backoff:    cfg.Backoff,
		fallbacks:  fallbacks,
		cache:      map[string]entry{},
		now:        time.Now,
	}
}

// entry is a quote kept in memory until ttl elapses. A stale quote is still
// served while the upstream is failing.
type entry struct {
	value     decimal.Decimal
	fetchedAt time.Time
	ttl       time.Duration

	// failures since the last quote; no fetch goes out before retryAt
	failures int
	retryAt  time.Time
}

func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

func (e entry) backingOff(now time.Time) bool {
	return now.Before(e.retryAt)
}

func backoff(base time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures && d < maxBackoff; i++ {
		d *= 2
	}

	return min(d, maxBackoff)
}

type oracle struct {
	properties core.PropertyStore
	logger     *slog.Logger
	client     *resty.Client
	ttl        time.Duration
	backoff    time.Duration
	fallbacks  map[string]decimal.Decimal

	sf    singleflight.Group
	mux   sync.Mutex
	cache map[string]entry
	now   func() time.Time
}

func (o *oracle) GetPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	now := o.now()

	o.mux.Lock()
	e := o.cache[asset]
	o.mux.Unlock()

	if e.fresh(now) {
		return e.value, nil
	}

	logger := o.logger.With("asset", asset)

	if !e.backingOff(now) {
		v, err, _ := o.sf.Do(asset, func() (any, error) {
			return o.fetch(ctx, asset)
		})
		if err == nil {
			return v.(decimal.Decimal), nil
		}

		e = o.failed(asset, now)
		logger.Warn("fetch price failed, falling back", "failures", e.failures, "retry_at", e.retryAt, "err", err)
	}

	if e.value.IsPositive() {
		return e.value, nil
	}

	var last decimal.Decimal
	if err := o.properties.Get(ctx, propertyKey(asset), &last); err != nil {
		logger.Error("properties.Get", "err", err)
	} else if last.IsPositive() {
		return last, nil
	}

	if fallback, ok := o.fallbacks[asset]; ok {
		return fallback, nil
	}

	return decimal.Zero, fmt.Errorf("%w: no price known for %s", core.ErrNotFound, asset)
}

// failed records an upstream failure and schedules the next fetch.
func (o *oracle) failed(asset string, now time.Time) entry {
	o.mux.Lock()
	defer o.mux.Unlock()

	e := o.cache[asset]
	if e.backingOff(now) {
		// a concurrent caller already counted this failure
		return e
	}

	e.failures++
	e.retryAt = now.Add(backoff(o.backoff, e.failures))
	o.cache[asset] = e
	return e
}

func (o *oracle) fetch(ctx context.Context, asset string) (decimal.Decimal, error) {
	var body map[string]map[string]decimal.Decimal

	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           asset,
			"vs_currencies": vsCurrency,
		}).
		SetResult(&body).
		Get("/simple/price")
	if err != nil {
		return decimal.Zero, err
	}

	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("upstream status %s", resp.Status())
	}

	price := body[asset][vsCurrency]
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("upstream has no price for %s", asset)
	}

	o.mux.Lock()
	o.cache[asset] = entry{value: price, fetchedAt: o.now(), ttl: o.ttl}
	o.mux.Unlock()

	if err := o.properties.Set(ctx, propertyKey(asset), price); err != nil {
		o.logger.Error("properties.Set", "asset", asset, "err", err)
	}

	return price, nil
}

func propertyKey(asset string) string {
	return "price:" + asset
}
