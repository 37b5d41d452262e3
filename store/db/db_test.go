package db

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	tests := []string{
		"safepay:secret@tcp(127.0.0.1:3306)/safepay",
		"safepay:secret@tcp(127.0.0.1:3306)/safepay?charset=utf8mb4&multiStatements=false",
	}

	for _, dsn := range tests {
		t.Run(dsn, func(t *testing.T) {
			out, err := mysqlDSN(dsn)
			require.NoError(t, err)

			cfg, err := mysql.ParseDSN(out)
			require.NoError(t, err)
			assert.True(t, cfg.MultiStatements)
			assert.True(t, cfg.ParseTime)
			assert.Equal(t, "safepay", cfg.DBName)
			assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
		})
	}

	_, err := mysqlDSN("no-database-name")
	assert.Error(t, err)
}

func TestOpenRejectsBadMySQLDSN(t *testing.T) {
	_, err := Open(DriverMySQL, "safepay@tcp(127.0.0.1:3306)/safepay", "no-database-name")
	assert.Error(t, err)

	_, err = Open("oracle", "dsn")
	assert.Error(t, err)
}
