package api

import (
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/pandodao/safe-pay/core"
)

type Config struct {
	// Icon is returned to wallets on transaction request discovery.
	Icon string `valid:"url"`
	// BaseURL is the public origin of this server, used to render payment links.
	BaseURL string `valid:"url"`
}

func New(
	payments core.PaymentService,
	builder core.TransactionBuilder,
	logger *slog.Logger,
	cfg Config,
) *Server {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Server{
		payments: payments,
		builder:  builder,
		logger:   logger.With("handler", "api"),
		cfg:      cfg,
	}
}

type Server struct {
	payments core.PaymentService
	builder  core.TransactionBuilder
	logger   *slog.Logger
	cfg      Config
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/transaction-requests/{reference}", func(r chi.Router) {
		r.Get("/", s.handleTransactionRequestMeta)
		r.Post("/", s.handleTransactionRequest)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", s.handleCreatePayment)
		r.Get("/{reference}", s.handleFindPayment)
		r.Post("/{reference}/confirm", s.handleConfirmPayment)
	})

	return r
}
