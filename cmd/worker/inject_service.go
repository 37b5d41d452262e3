package main

import (
	"time"

	"github.com/google/wire"
	"github.com/pandodao/safe-pay/service/deriver"
	"github.com/pandodao/safe-pay/service/ledger"
	"github.com/pandodao/safe-pay/service/notifier"
	paymentz "github.com/pandodao/safe-pay/service/payment"
	"github.com/pandodao/safe-pay/service/price"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideLedgerConfig,
	ledger.New,
	providePriceConfig,
	price.New,
	provideNotifierConfig,
	notifier.New,
	provideDeriverConfig,
	deriver.New,
	providePaymentConfig,
	paymentz.New,
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func provideLedgerConfig(v *viper.Viper) ledger.Config {
	v.SetDefault("ledger.endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("ledger.commitment", "confirmed")

	return ledger.Config{
		Endpoint:       v.GetString("ledger.endpoint"),
		Commitment:     v.GetString("ledger.commitment"),
		SignatureLimit: v.GetInt("ledger.signature_limit"),
	}
}

func providePriceConfig(v *viper.Viper) price.Config {
	v.SetDefault("price.endpoint", price.DefaultEndpoint)
	v.SetDefault("price.ttl", time.Minute)
	v.SetDefault("price.fallbacks", map[string]string{"solana": "150"})

	return price.Config{
		Endpoint:  v.GetString("price.endpoint"),
		TTL:       v.GetDuration("price.ttl"),
		Timeout:   v.GetDuration("price.timeout"),
		Backoff:   v.GetDuration("price.backoff"),
		Fallbacks: v.GetStringMapString("price.fallbacks"),
	}
}

func provideNotifierConfig(v *viper.Viper) notifier.Config {
	return notifier.Config{
		WebhookURL: v.GetString("notifier.webhook_url"),
		Secret:     v.GetString("notifier.secret"),
		Timeout:    v.GetDuration("notifier.timeout"),
	}
}

func provideDeriverConfig(v *viper.Viper) deriver.Config {
	return deriver.Config{
		Secret:      v.GetString("deriver.secret"),
		MaxAttempts: v.GetInt("deriver.max_attempts"),
	}
}

func providePaymentConfig(v *viper.Viper) paymentz.Config {
	v.SetDefault("payment.fee_rate", "0.029")
	v.SetDefault("payment.fixed_fee", "0.30")
	v.SetDefault("payment.ttl", 30*time.Minute)

	return paymentz.Config{
		FeeRate:  v.GetString("payment.fee_rate"),
		FixedFee: v.GetString("payment.fixed_fee"),
		TTL:      v.GetDuration("payment.ttl"),
		Label:    v.GetString("payment.label"),
	}
}
