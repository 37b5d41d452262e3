package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pandodao/safe-pay/core"
	"github.com/pandodao/safe-pay/service/builder"
)

type transactionRequestMeta struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type transactionRequest struct {
	Account string `json:"account"`
}

type transactionResponse struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message"`
}

// pendingPayment resolves a payment wallets may still pay. Expired and
// settled payments look unknown to wallets.
func (s *Server) pendingPayment(r *http.Request) (*core.Payment, error) {
	reference := chi.URLParam(r, "reference")

	payment, err := s.payments.Find(r.Context(), reference)
	if err != nil {
		if errors.Is(err, core.ErrExpired) {
			return nil, fmt.Errorf("%w: payment %s expired", core.ErrNotFound, reference)
		}

		return nil, err
	}

	if payment.Status != core.PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment %s is %s", core.ErrNotFound, reference, payment.Status)
	}

	return payment, nil
}

func (s *Server) handleTransactionRequestMeta(w http.ResponseWriter, r *http.Request) {
	payment, err := s.pendingPayment(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, transactionRequestMeta{
		Label: payment.Label,
		Icon:  s.cfg.Icon,
	})
}

func (s *Server) handleTransactionRequest(w http.ResponseWriter, r *http.Request) {
	var body transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Account == "" {
		renderError(w, http.StatusBadRequest, "account required")
		return
	}

	payment, err := s.pendingPayment(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	raw, err := s.builder.Build(r.Context(), payment, body.Account)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	msg := payment.Message
	if msg == "" {
		msg = payment.Label
	}

	renderJSON(w, http.StatusOK, transactionResponse{
		Transaction: builder.Encode(raw),
		Message:     msg,
	})
}
