package handler

import (
	"net/http"

	"github.com/go-dating-api/internal/application/session"
	"github.com/go-dating-api/internal/transport/http/middleware"
)

type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func authEnvelope(res *session.LoginResult) AuthEnvelope {
	return AuthEnvelope{Bearer: res.Bearer, RefreshToken: res.RefreshToken, Session: res.Session}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(result))
}

func (h *SessionHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req session.GoogleLoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.LoginWithGoogle(r.Context(), req.IDToken, req.DeviceUUID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(result))
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: bearer, RefreshToken: newToken})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.GetCurrent(r.Context(), c.SessionID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Logout(r.Context(), c.SessionID); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

// Active lists the caller's signed-in devices, current session first.
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	sessions, err := h.svc.Active(r.Context(), c.UserID, c.SessionID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// LogoutOthers signs out every device but the caller's.
func (h *SessionHandler) LogoutOthers(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	n, err := h.svc.LogoutOthers(r.Context(), c.UserID, c.SessionID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	middleware.Log(r.Context()).WithField("revoked", n).Info("other sessions signed out")
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}
