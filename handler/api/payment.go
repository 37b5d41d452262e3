package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/pandodao/safe-pay/core"
	"github.com/shopspring/decimal"
)

type createPaymentRequest struct {
	UserID         string          `json:"user_id"`
	MerchantWallet string          `json:"merchant_wallet"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       core.Currency   `json:"currency"`
	Memo           string          `json:"memo"`
	Label          string          `json:"label"`
	Message        string          `json:"message"`
}

type confirmPaymentRequest struct {
	Signature string `json:"signature"`
}

type paymentView struct {
	*core.Payment
	Link string `json:"link,omitempty"`
}

func (s *Server) view(payment *core.Payment) paymentView {
	v := paymentView{Payment: payment}
	if s.cfg.BaseURL != "" && payment.Status == core.PaymentStatusPending {
		v.Link = "solana:" + url.QueryEscape(s.cfg.BaseURL+"/transaction-requests/"+payment.Reference)
	}

	return v
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var body createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := s.payments.Create(r.Context(), &core.CreatePaymentInput{
		UserID:         body.UserID,
		MerchantWallet: body.MerchantWallet,
		Amount:         body.Amount,
		Currency:       body.Currency,
		Memo:           body.Memo,
		Label:          body.Label,
		Message:        body.Message,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	renderJSON(w, http.StatusCreated, s.view(payment))
}

func (s *Server) handleFindPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.payments.Find(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		if errors.Is(err, core.ErrExpired) && payment != nil {
			renderJSON(w, http.StatusGone, s.view(payment))
			return
		}

		s.fail(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, s.view(payment))
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Signature == "" {
		renderError(w, http.StatusBadRequest, "signature required")
		return
	}

	payment, err := s.payments.Confirm(r.Context(), chi.URLParam(r, "reference"), body.Signature)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, s.view(payment))
}
