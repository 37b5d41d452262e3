package deriver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store/db/dbtest"
	"github.com/pandodao/safe-pay/store/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memTrackings is an in-memory UserTrackingStore with the same
// compare-and-increment semantics as the sql store.
type memTrackings struct {
	mu    sync.Mutex
	users map[string]core.UserTracking
}

func newMemTrackings() *memTrackings {
	return &memTrackings{users: map[string]core.UserTracking{}}
}

func (m *memTrackings) GetOrInit(_ context.Context, userID, seed string) (*core.UserTracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.users[userID]
	if !ok {
		t = core.UserTracking{UserID: userID, Seed: seed}
		m.users[userID] = t
	}

	return &t, nil
}

func (m *memTrackings) Find(_ context.Context, userID string) (*core.UserTracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.users[userID]
	if !ok {
		return nil, core.ErrNotFound
	}

	return &t, nil
}

func (m *memTrackings) IncrementCounter(_ context.Context, userID string, from uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.users[userID]
	if !ok || t.Counter != from {
		return 0, fmt.Errorf("%w: moved", core.ErrConflict)
	}

	t.Counter++
	t.TotalPayments++
	m.users[userID] = t
	return t.Counter, nil
}

func TestNextSequential(t *testing.T) {
	ctx := context.Background()
	d := New(tracking.New(dbtest.New(t)), discard, Config{Secret: testSecret})

	var issued []*core.DerivedAddress
	for i := 1; i <= 3; i++ {
		addr, err := d.Next(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, uint64(i), addr.Counter)
		issued = append(issued, addr)
	}

	third := issued[2]
	assert.True(t, strings.HasSuffix(third.Path, "/u1/0/3"), third.Path)
	assert.True(t, strings.HasPrefix(third.Path, PathPrefix))
	assert.NotEqual(t, issued[0].Address, issued[1].Address)
	assert.NotEqual(t, issued[1].Address, issued[2].Address)

	// every recomputation reproduces the issued addresses
	for i := 0; i < 2; i++ {
		again, err := d.Range(ctx, "u1", 1, 3)
		require.NoError(t, err)
		require.Len(t, again, 3)
		for idx, addr := range again {
			assert.Equal(t, issued[idx].Address, addr.Address)
			assert.Equal(t, issued[idx].Path, addr.Path)
		}
	}

	single, err := d.Range(ctx, "u1", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, third.Address, single[0].Address)
}

func TestNextDistinctUsers(t *testing.T) {
	ctx := context.Background()
	d := New(newMemTrackings(), discard, Config{Secret: testSecret})

	a, err := d.Next(ctx, "u1")
	require.NoError(t, err)
	b, err := d.Next(ctx, "u2")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.Counter)
	assert.Equal(t, uint64(1), b.Counter)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestNextConcurrent(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		testNextConcurrent(t, newMemTrackings(), 32)
	})

	t.Run("sqlite", func(t *testing.T) {
		testNextConcurrent(t, tracking.New(dbtest.New(t)), 16)
	})
}

func testNextConcurrent(t *testing.T, trackings core.UserTrackingStore, n int) {
	ctx := context.Background()
	// a caller can lose at most n-1 races
	d := New(trackings, discard, Config{Secret: testSecret, MaxAttempts: n})

	_, err := d.Next(ctx, "u1")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		counters = map[uint64]bool{}
		addrs    = map[string]bool{}
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			addr, err := d.Next(ctx, "u1")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			assert.False(t, counters[addr.Counter], "counter %d issued twice", addr.Counter)
			counters[addr.Counter] = true
			addrs[addr.Address] = true
		}()
	}

	wg.Wait()

	assert.Len(t, counters, n)
	assert.Len(t, addrs, n)
	for c := uint64(2); c <= uint64(n+1); c++ {
		assert.True(t, counters[c], "counter %d missing", c)
	}

	state, err := trackings.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(n+1), state.Counter)
}

func TestNextGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	d := New(&racingTrackings{memTrackings: newMemTrackings()}, discard, Config{Secret: testSecret, MaxAttempts: 2})

	_, err := d.Next(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrConflict)
}

// racingTrackings always loses the counter race.
type racingTrackings struct {
	*memTrackings
}

func (r *racingTrackings) IncrementCounter(_ context.Context, _ string, _ uint64) (uint64, error) {
	return 0, core.ErrConflict
}

func TestRotatedSecret(t *testing.T) {
	ctx := context.Background()
	trackings := newMemTrackings()

	_, err := New(trackings, discard, Config{Secret: testSecret}).Next(ctx, "u1")
	require.NoError(t, err)

	rotated := New(trackings, discard, Config{Secret: strings.Repeat("x", 32)})

	_, err = rotated.Next(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrDerivation)

	_, err = rotated.Range(ctx, "u1", 1, 1)
	assert.ErrorIs(t, err, core.ErrDerivation)

	// no counter was consumed by the failed issuance
	state, err := trackings.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Counter)
}

func TestRangeValidation(t *testing.T) {
	ctx := context.Background()
	d := New(newMemTrackings(), discard, Config{Secret: testSecret})

	_, err := d.Range(ctx, "u1", 0, 3)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = d.Range(ctx, "u1", 4, 3)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = d.Range(ctx, "nobody", 1, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = d.Next(ctx, "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestNewRejectsShortSecret(t *testing.T) {
	assert.Panics(t, func() {
		New(newMemTrackings(), discard, Config{Secret: "short"})
	})
}
