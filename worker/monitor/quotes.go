package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type quote struct {
	at    time.Time
	price decimal.Decimal
}

// quotes holds the native prices sampled over the last window, at most one
// sample per step keeping the highest price seen in it.
type quotes struct {
	window time.Duration
	step   time.Duration

	mux     sync.Mutex
	samples []quote
}

func (q *quotes) record(at time.Time, price decimal.Decimal) {
	q.mux.Lock()
	defer q.mux.Unlock()

	if n := len(q.samples); n > 0 && at.Sub(q.samples[n-1].at) < q.step {
		if price.GreaterThan(q.samples[n-1].price) {
			q.samples[n-1].price = price
		}

		return
	}

	cutoff := at.Add(-q.window)
	kept := q.samples[:0]
	for _, s := range q.samples {
		if !s.at.Before(cutoff) {
			kept = append(kept, s)
		}
	}

	q.samples = append(kept, quote{at: at, price: price})
}

// highest returns the highest price sampled at or after since.
func (q *quotes) highest(since time.Time) (decimal.Decimal, bool) {
	q.mux.Lock()
	defer q.mux.Unlock()

	var (
		best  decimal.Decimal
		found bool
	)

	for _, s := range q.samples {
		if s.at.Before(since) {
			continue
		}

		if !found || s.price.GreaterThan(best) {
			best, found = s.price, true
		}
	}

	return best, found
}

// nativePrice fetches the current native price and keeps it as a sample.
func (w *Monitor) nativePrice(ctx context.Context) (decimal.Decimal, error) {
	price, err := w.oracle.GetPrice(ctx, w.cfg.NativeSymbol)
	if err != nil {
		return decimal.Zero, err
	}

	w.quotes.record(w.now(), price)
	return price, nil
}

// quotedPrice is the price a native payment is held to: the highest seen since
// it was created. The wallet was quoted somewhere in that window.
func (w *Monitor) quotedPrice(ctx context.Context, createdAt time.Time) (decimal.Decimal, error) {
	price, err := w.nativePrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if best, ok := w.quotes.highest(createdAt); ok && best.GreaterThan(price) {
		return best, nil
	}

	return price, nil
}
