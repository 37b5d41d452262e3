package db

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/tsenart/nap"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB pairs the master/replica pool with the statement builder of its dialect.
type DB struct {
	*nap.DB
	Driver string
}

// Open connects to dsn; extra replica dsns are appended with ';' as nap expects.
func Open(driver, dsn string, replicas ...string) (*DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	dsns := append([]string{dsn}, replicas...)
	if driver == DriverMySQL {
		for i := range dsns {
			v, err := mysqlDSN(dsns[i])
			if err != nil {
				return nil, err
			}

			dsns[i] = v
		}
	}

	conn, err := nap.Open(driver, strings.Join(dsns, ";"))
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// a single connection avoids SQLITE_BUSY between writers
		conn.SetMaxOpenConns(1)
	}

	return &DB{DB: conn, Driver: driver}, nil
}

// mysqlDSN turns on what the stores need from the mysql driver: the migrations
// run several statements per file and timestamps scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}

	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (db *DB) Builder() sq.StatementBuilderType {
	if db.Driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// SerializableTx returns the options for transactions that must not interleave
// with concurrent writers. sqlite serializes writes on its own.
func (db *DB) SerializableTx() *sql.TxOptions {
	if db.Driver == DriverSQLite {
		return nil
	}

	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}
