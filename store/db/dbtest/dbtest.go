// Package dbtest opens migrated in-memory databases for store tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pandodao/safe-pay/store/db"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

func New(t *testing.T) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dbtest-%d?mode=memory&cache=shared", seq.Add(1))
	conn, err := db.Open(db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}
