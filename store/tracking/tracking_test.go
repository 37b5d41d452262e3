package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store"
	"github.com/pandodao/safe-pay/store/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrInit(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.New(t))

	_, err := s.Find(ctx, "u1")
	require.True(t, store.IsErrNotFound(err))

	first, err := s.GetOrInit(ctx, "u1", "sealed-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Counter)
	assert.Equal(t, "sealed-1", first.Seed)

	// the seed of an existing user is never replaced
	again, err := s.GetOrInit(ctx, "u1", "sealed-2")
	require.NoError(t, err)
	assert.Equal(t, "sealed-1", again.Seed)
}

func TestIncrementCounter(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.New(t))

	_, err := s.GetOrInit(ctx, "u1", "seed")
	require.NoError(t, err)

	n, err := s.IncrementCounter(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// a stale read loses the race
	_, err = s.IncrementCounter(ctx, "u1", 0)
	assert.ErrorIs(t, err, core.ErrConflict)

	n, err = s.IncrementCounter(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	tracking, err := s.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tracking.Counter)
	assert.Equal(t, uint64(2), tracking.TotalPayments)

	_, err = s.IncrementCounter(ctx, "nobody", 0)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestConflict(t *testing.T) {
	// a serializable update that lost to a concurrent writer is retryable
	err := conflict(&pq.Error{Code: "40001"}, "u1", 3)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Contains(t, err.Error(), "u1")

	assert.ErrorIs(t, conflict(&mysql.MySQLError{Number: 1213}, "u1", 3), core.ErrConflict)

	other := errors.New("connection refused")
	assert.Equal(t, other, conflict(other, "u1", 3))
}
