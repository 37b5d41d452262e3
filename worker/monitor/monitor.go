package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-co-op/gocron/v2"
	"github.com/pandodao/safe-pay/core"
	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/mapset"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Interval time.Duration `valid:"required"`
	TTL      time.Duration `valid:"required"`
	// Mint of the token currency.
	Mint         string `valid:"required"`
	NativeSymbol string `valid:"required"`
	// Slippage is the fraction of the expected lamports a native payment may
	// fall short by after price movement.
	Slippage    string `valid:"float"`
	Concurrency int
	CallTimeout time.Duration
	TickTimeout time.Duration
	StopTimeout time.Duration
	BatchLimit  int
}

func New(
	payments core.PaymentStore,
	ledger core.LedgerClient,
	oracle core.PriceOracle,
	notifier core.Notifier,
	properties core.PropertyStore,
	logger *slog.Logger,
	cfg Config,
) *Monitor {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.Slippage == "" {
		cfg.Slippage = "0.01"
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 2 * time.Minute
	}

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}

	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 500
	}

	return &Monitor{
		payments:   payments,
		ledger:     ledger,
		oracle:     oracle,
		notifier:   notifier,
		properties: properties,
		logger:     logger.With("worker", "monitor"),
		cfg:        cfg,
		slippage:   decimal.RequireFromString(cfg.Slippage),
		metrics:    newMonitorMetrics(),
		quotes:     &quotes{window: cfg.TTL + cfg.Interval, step: cfg.Interval},
		now:        time.Now,
	}
}

type Monitor struct {
	payments   core.PaymentStore
	ledger     core.LedgerClient
	oracle     core.PriceOracle
	notifier   core.Notifier
	properties core.PropertyStore
	logger     *slog.Logger
	cfg        Config
	slippage   decimal.Decimal
	metrics    *monitorMetrics
	quotes     *quotes
	now        func() time.Time

	mux       sync.Mutex
	stopped   bool
	ticking   sync.WaitGroup
	notifying sync.WaitGroup
}

func (w *Monitor) Run(ctx context.Context) error {
	w.logger.Info("monitor start", "interval", w.cfg.Interval, "ttl", w.cfg.TTL)

	s, err := gocron.NewScheduler(gocron.WithStopTimeout(w.cfg.StopTimeout))
	if err != nil {
		return err
	}

	// ticks outlive ctx so a sweep in flight at shutdown can finish, until the
	// stop timeout aborts it
	tickCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	defer abort()

	if _, err := s.NewJob(
		gocron.DurationJob(w.cfg.Interval),
		gocron.NewTask(func() {
			if !w.enter() {
				return
			}
			defer w.ticking.Done()

			ctx, cancel := context.WithTimeout(tickCtx, w.cfg.TickTimeout)
			defer cancel()
			_ = w.run(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}

	s.Start()
	<-ctx.Done()

	hard := time.AfterFunc(w.cfg.StopTimeout, abort)
	defer hard.Stop()

	if err := s.Shutdown(); err != nil {
		w.logger.Error("scheduler.Shutdown", "err", err)
	}

	w.mux.Lock()
	w.stopped = true
	w.mux.Unlock()

	// no tick starts from here, so none can add notifications after the wait
	w.ticking.Wait()
	w.notifying.Wait()
	return ctx.Err()
}

// enter registers a starting tick, false once Run is stopping.
func (w *Monitor) enter() bool {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.stopped {
		return false
	}

	w.ticking.Add(1)
	return true
}

func (w *Monitor) run(ctx context.Context) error {
	start := w.now()
	defer func() {
		w.metrics.tickDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := start.Add(-w.cfg.TTL)

	fresh, err := w.payments.ListPending(ctx, cutoff, w.cfg.BatchLimit)
	if err != nil {
		w.logger.Error("payments.ListPending", "err", err)
		w.metrics.errors.WithLabelValues("store").Inc()
		return err
	}

	stale, err := w.payments.ListPendingBefore(ctx, cutoff, w.cfg.BatchLimit)
	if err != nil {
		w.logger.Error("payments.ListPendingBefore", "err", err)
		w.metrics.errors.WithLabelValues("store").Inc()
		return err
	}

	if n := len(fresh) + len(stale); n > 0 {
		w.logger.Debug("sweep pending payments", "fresh", len(fresh), "stale", len(stale))
	}

	if hasNative(fresh) || hasNative(stale) {
		// quotes are kept while payments wait, not only when a transfer shows up
		if _, err := w.nativePrice(ctx); err != nil {
			w.logger.Error("oracle.GetPrice", "err", err)
			w.metrics.errors.WithLabelValues("price").Inc()
		}
	}

	var (
		seen = mapset.New[string]()
		g    errgroup.Group
	)
	g.SetLimit(w.cfg.Concurrency)

	for _, batch := range []struct {
		payments []*core.Payment
		stale    bool
	}{
		{fresh, false},
		{stale, true},
	} {
		for idx := range batch.payments {
			payment, isStale := batch.payments[idx], batch.stale
			if seen.Has(payment.Reference) {
				continue
			}
			seen.Put(payment.Reference)

			g.Go(func() error {
				// failures stay pending for the next tick
				_ = w.handlePayment(ctx, payment, isStale)
				return nil
			})
		}
	}

	_ = g.Wait()

	if err := w.properties.Set(ctx, core.PropertyMonitorLastTick, w.now().UTC()); err != nil {
		w.logger.Error("properties.Set", "err", err)
	}

	return nil
}

func (w *Monitor) handlePayment(ctx context.Context, payment *core.Payment, stale bool) error {
	logger := w.logger.With("reference", payment.Reference)

	callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()

	txs, err := w.ledger.FindTransactionsByReference(callCtx, payment.Reference)
	if err != nil {
		logger.Error("ledger.FindTransactionsByReference", "err", err)
		w.metrics.errors.WithLabelValues("ledger").Inc()
		return err
	}

	for _, tx := range txs {
		err := w.validate(callCtx, payment, tx)
		if err == nil {
			return w.confirm(ctx, payment, tx)
		}

		if !errors.Is(err, errMismatch) {
			logger.Error("validate", "signature", tx.Signature, "err", err)
			w.metrics.errors.WithLabelValues("validate").Inc()
			return err
		}

		logger.Warn("transfer does not match payment", "signature", tx.Signature, "err", err)
	}

	if !stale {
		return nil
	}

	// an attempt that never validated is kept apart from silence
	to := core.PaymentStatusExpired
	if len(txs) > 0 {
		to = core.PaymentStatusFailed
	}

	_, err = w.transition(ctx, logger, payment, to, "", w.now())
	return err
}

func (w *Monitor) confirm(ctx context.Context, payment *core.Payment, tx *core.LedgerTransaction) error {
	logger := w.logger.With("reference", payment.Reference, "signature", tx.Signature)

	at := tx.BlockTime
	if at.IsZero() {
		at = w.now()
	}

	ok, err := w.transition(ctx, logger, payment, core.PaymentStatusConfirmed, tx.Signature, at)
	if err != nil || !ok {
		return err
	}

	w.notifying.Add(1)
	go func(ctx context.Context) {
		defer w.notifying.Done()

		if err := w.notifier.OnConfirmed(ctx, payment); err != nil {
			logger.Error("notifier.OnConfirmed", "err", err)
			w.metrics.errors.WithLabelValues("notify").Inc()
		}
	}(context.WithoutCancel(ctx))

	return nil
}

// transition leaves payment untouched when another path moved it first.
func (w *Monitor) transition(ctx context.Context, logger *slog.Logger, payment *core.Payment, to core.PaymentStatus, signature string, at time.Time) (bool, error) {
	ok, err := w.payments.Transition(ctx, payment, to, signature, at)
	if err != nil {
		logger.Error("payments.Transition", "to", to, "err", err)
		w.metrics.errors.WithLabelValues("store").Inc()
		return false, err
	}

	if !ok {
		logger.Debug("payment already left pending", "to", to)
		return false, nil
	}

	logger.Info("payment transitioned", "status", to)
	w.metrics.transitions.WithLabelValues(string(to)).Inc()
	return true, nil
}

func hasNative(payments []*core.Payment) bool {
	for _, p := range payments {
		if p.Currency == core.CurrencyNative {
			return true
		}
	}

	return false
}
