package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-dating-api/internal/application/subscription"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/transport/http/middleware"
)

// WebhookSecretHeader carries the shared secret on PIX settlement callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// SubscriptionHandler handles plans, PIX checkout and boosts.
type SubscriptionHandler struct {
	svc           subscription.Service
	webhookSecret string
}

func NewSubscriptionHandler(svc subscription.Service, webhookSecret string) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, webhookSecret: webhookSecret}
}

func (h *SubscriptionHandler) Plans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Plans())
}

func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Checkout(r.Context(), c.UserID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	cur, err := h.svc.Current(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.Cancel(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) ActivateBoost(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	st, err := h.svc.ActivateBoost(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *SubscriptionHandler) BoostStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	st, err := h.svc.BoostStatus(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// pixNotification is the settlement callback body: one entry per received
// PIX, identified by the txid embedded in the charge.
type pixNotification struct {
	Pix []struct {
		TxID  string `json:"txid" validate:"required"`
		Valor string `json:"valor"`
	} `json:"pix" validate:"required,min=1,dive"`
}

// PIXWebhook settles charges reported by the payment provider. Unknown or
// no longer pending txids are acknowledged so the provider stops retrying.
func (h *SubscriptionHandler) PIXWebhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(WebhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}
	var body pixNotification
	if !decode(w, r, &body) {
		return
	}
	settled := 0
	for _, p := range body.Pix {
		_, err := h.svc.ConfirmPayment(r.Context(), p.TxID)
		switch {
		case err == nil:
			settled++
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
			middleware.Log(r.Context()).WithError(err).WithField("txid", p.TxID).Warn("pix notification skipped")
		default:
			httpError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"settled": settled})
}

// AdminConfirm settles a charge by txid on behalf of the provider.
func (h *SubscriptionHandler) AdminConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxID string `json:"txid" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.svc.ConfirmPayment(r.Context(), req.TxID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subs, err := h.svc.List(r.Context(), domain.SubscriptionFilter{
		Status: domain.SubscriptionStatus(q.Get("status")),
		Plan:   domain.PlanCode(q.Get("plan")),
		UserID: q.Get("user_id"),
	})
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSubscriptionRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.svc.UpdateStatus(r.Context(), pathParam(r, "id"), req.Status)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
