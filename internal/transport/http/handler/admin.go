package handler

import (
	"net/http"

	"github.com/go-dating-api/internal/application/analytics"
	"github.com/go-dating-api/internal/application/match"
	"github.com/go-dating-api/internal/domain"
)

// AdminHandler serves the admin console endpoints that have no user-facing
// counterpart.
type AdminHandler struct {
	analytics analytics.Service
	matches   match.Service
}

func NewAdminHandler(a analytics.Service, m match.Service) *AdminHandler {
	return &AdminHandler{analytics: a, matches: m}
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	sum, err := h.analytics.Summary(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *AdminHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, next, err := h.matches.AdminList(r.Context(), q.Get("user_id"), queryInt(r, "limit"), q.Get("cursor"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.Match]{Data: matches, NextCursor: next})
}

func (h *AdminHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.matches.AdminDelete(r.Context(), pathParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "match removed"})
}
