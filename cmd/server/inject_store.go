package main

import (
	"github.com/google/wire"
	"github.com/pandodao/safe-pay/store/db"
	"github.com/pandodao/safe-pay/store/payment"
	"github.com/pandodao/safe-pay/store/property"
	"github.com/pandodao/safe-pay/store/tracking"
	"github.com/spf13/viper"
)

var storeSet = wire.NewSet(
	provideDB,
	payment.New,
	tracking.New,
	property.New,
)

func provideDB(v *viper.Viper) (*db.DB, func(), error) {
	v.SetDefault("db.driver", db.DriverMySQL)

	conn, err := db.Open(v.GetString("db.driver"), v.GetString("db.dsn"), v.GetStringSlice("db.replicas")...)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, func() { _ = conn.Close() }, nil
}
