package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/wire"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/handler/api"
	"github.com/pandodao/safe-pay/handler/hc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/viper"
)

var serverSet = wire.NewSet(
	provideAPIConfig,
	api.New,
	provideServer,
)

func provideAPIConfig(v *viper.Viper) api.Config {
	return api.Config{
		Icon:    v.GetString("api.icon"),
		BaseURL: v.GetString("api.base_url"),
	}
}

func provideServer(apiHandler *api.Server, properties core.PropertyStore) *http.Server {
	m := chi.NewMux()
	m.Use(middleware.RealIP)
	m.Use(middleware.Logger)
	m.Use(middleware.Recoverer)
	m.Use(cors.AllowAll().Handler)

	m.Mount("/hc", hc.Handler(version, properties))
	m.Mount("/metrics", promhttp.Handler())
	m.Mount("/", apiHandler.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", opt.port),
		Handler: m,
	}
}
