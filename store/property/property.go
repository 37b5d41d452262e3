package property

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/store/db"
)

type store struct {
	db *db.DB
}

func New(db *db.DB) core.PropertyStore {
	return &store{db: db}
}

// Get leaves value untouched when the key has never been set.
func (s *store) Get(ctx context.Context, key string, value any) error {
	b := s.db.Builder().Select("value").From("properties").Where(sq.Eq{"name": key})

	var raw string
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&raw); err == nil {
		return json.Unmarshal([]byte(raw), value)
	} else if errors.Is(err, sql.ErrNoRows) {
		return nil
	} else {
		return err
	}
}

func (s *store) Set(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	update := s.db.Builder().Update("properties").
		Set("value", string(jsonValue)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"name": key})

	r, err := update.RunWith(s.db.Master()).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to set property: %w", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if n > 0 {
		return nil
	}

	insert := s.db.Builder().Insert("properties").
		Columns("name", "value").
		Values(key, string(jsonValue))

	_, err = insert.RunWith(s.db.Master()).ExecContext(ctx)
	return err
}
