package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-dating-api/internal/application/auth"
)

// contactChannel is one way of proving a contact detail: a code is sent,
// then echoed back.
type contactChannel struct {
	request  func(ctx context.Context, userID string) error
	validate func(ctx context.Context, userID, code string) error
	readCode func(w http.ResponseWriter, r *http.Request) (string, bool)
	sent     string
	done     string
}

// ConfirmHandler serves /confirm-email/{action} and /confirm-phone/{action}.
// Actions are "request" and "validate-code".
type ConfirmHandler struct {
	email contactChannel
	phone contactChannel
}

func NewConfirmHandler(svc auth.Service) *ConfirmHandler {
	return &ConfirmHandler{
		email: contactChannel{
			request:  svc.RequestEmailConfirmation,
			validate: svc.ValidateEmailToken,
			readCode: func(w http.ResponseWriter, r *http.Request) (string, bool) {
				var body struct {
					Token string `json:"token" validate:"required"`
				}
				ok := decode(w, r, &body)
				return body.Token, ok
			},
			sent: "confirmation email sent",
			done: "email confirmed",
		},
		phone: contactChannel{
			request:  svc.RequestPhoneConfirmation,
			validate: svc.ValidatePhoneOTP,
			readCode: func(w http.ResponseWriter, r *http.Request) (string, bool) {
				var body struct {
					OTP string `json:"otp" validate:"required,len=6,numeric"`
				}
				ok := decode(w, r, &body)
				return body.OTP, ok
			},
			sent: "confirmation SMS sent",
			done: "phone confirmed",
		},
	}
}

func (h *ConfirmHandler) Email(w http.ResponseWriter, r *http.Request) { h.serve(h.email, w, r) }
func (h *ConfirmHandler) Phone(w http.ResponseWriter, r *http.Request) { h.serve(h.phone, w, r) }

func (h *ConfirmHandler) serve(ch contactChannel, w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	switch chi.URLParam(r, "action") {
	case "request":
		if err := ch.request(r.Context(), c.UserID); err != nil {
			httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: ch.sent})
	case "validate-code":
		code, ok := ch.readCode(w, r)
		if !ok {
			return
		}
		if err := ch.validate(r.Context(), c.UserID, code); err != nil {
			httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: ch.done})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
