package main

import (
	"time"

	"github.com/google/wire"
	"github.com/pandodao/safe-pay/worker/monitor"
	"github.com/spf13/viper"
)

var workerSet = wire.NewSet(
	provideMonitorConfig,
	monitor.New,
)

func provideMonitorConfig(v *viper.Viper) monitor.Config {
	v.SetDefault("monitor.interval", 15*time.Second)
	v.SetDefault("payment.ttl", 30*time.Minute)
	v.SetDefault("token.mint", usdcMint)
	v.SetDefault("native.symbol", "solana")
	v.SetDefault("monitor.slippage", "0.01")

	return monitor.Config{
		Interval:     v.GetDuration("monitor.interval"),
		TTL:          v.GetDuration("payment.ttl"),
		Mint:         v.GetString("token.mint"),
		NativeSymbol: v.GetString("native.symbol"),
		Slippage:     v.GetString("monitor.slippage"),
		Concurrency:  v.GetInt("monitor.concurrency"),
		CallTimeout:  v.GetDuration("monitor.call_timeout"),
		TickTimeout:  v.GetDuration("monitor.tick_timeout"),
		StopTimeout:  v.GetDuration("monitor.stop_timeout"),
		BatchLimit:   v.GetInt("monitor.batch_limit"),
	}
}
