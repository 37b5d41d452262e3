package tracking

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store"
	"github.com/pandodao/safe-pay/store/db"
)

func New(db *db.DB) core.UserTrackingStore {
	return &trackingStore{db: db}
}

type trackingStore struct {
	db *db.DB
}

var columns = []string{"user_id", "counter", "seed", "total_payments", "created_at", "updated_at"}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTracking(scanner scanner, t *core.UserTracking) error {
	return scanner.Scan(&t.UserID, &t.Counter, &t.Seed, &t.TotalPayments, &t.CreatedAt, &t.UpdatedAt)
}

func (s *trackingStore) find(ctx context.Context, r sq.BaseRunner, userID string) (*core.UserTracking, error) {
	b := s.db.Builder().Select(columns...).From("user_trackings").Where(sq.Eq{"user_id": userID})
	row := b.RunWith(r).QueryRowContext(ctx)

	var t core.UserTracking
	if err := scanTracking(row, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *trackingStore) Find(ctx context.Context, userID string) (*core.UserTracking, error) {
	// read from master, the counter must never be stale here
	return s.find(ctx, s.db.Master(), userID)
}

func (s *trackingStore) GetOrInit(ctx context.Context, userID, seed string) (*core.UserTracking, error) {
	t, err := s.Find(ctx, userID)
	if err == nil {
		return t, nil
	}

	if !store.IsErrNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	b := s.db.Builder().Insert("user_trackings").
		Columns(columns...).
		Values(userID, 0, seed, 0, now, now)

	if _, insertErr := b.RunWith(s.db.Master()).ExecContext(ctx); insertErr != nil {
		// a concurrent initializer may have inserted the row first
		if t, err := s.Find(ctx, userID); err == nil {
			return t, nil
		}

		return nil, insertErr
	}

	return &core.UserTracking{
		UserID:    userID,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *trackingStore) IncrementCounter(ctx context.Context, userID string, from uint64) (uint64, error) {
	tx, err := s.db.Master().BeginTx(ctx, s.db.SerializableTx())
	if err != nil {
		return 0, err
	}

	defer tx.Rollback()

	b := s.db.Builder().Update("user_trackings").
		Set("counter", sq.Expr("counter + 1")).
		Set("total_payments", sq.Expr("total_payments + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "counter": from})

	r, err := b.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return 0, conflict(err, userID, from)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return 0, err
	}

	if n == 0 {
		return 0, fmt.Errorf("%w: counter of %s moved past %d", core.ErrConflict, userID, from)
	}

	if err := tx.Commit(); err != nil {
		return 0, conflict(err, userID, from)
	}

	return from + 1, nil
}

// conflict reports a transaction aborted by a concurrent writer as a lost race.
func conflict(err error, userID string, from uint64) error {
	if store.IsErrSerialization(err) {
		return fmt.Errorf("%w: counter of %s at %d: %v", core.ErrConflict, userID, from, err)
	}

	return err
}
