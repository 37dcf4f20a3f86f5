package handler

import (
	"net/http"

	"github.com/go-dating-api/internal/application/discovery"
	"github.com/go-dating-api/internal/application/swipe"
	"github.com/go-dating-api/internal/domain"
)

// DiscoveryHandler serves the swipe deck and the swipe itself.
type DiscoveryHandler struct {
	discovery discovery.Service
	swipes    swipe.Service
}

func NewDiscoveryHandler(d discovery.Service, s swipe.Service) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: d, swipes: s}
}

func (h *DiscoveryHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	profiles, err := h.discovery.Candidates(r.Context(), c.UserID, queryInt(r, "limit"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *DiscoveryHandler) LikesReceived(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	profiles, err := h.discovery.LikesReceived(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// Swipe answers 201 when the swipe produced a match, 200 otherwise.
func (h *DiscoveryHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.SwipeRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.swipes.Swipe(r.Context(), c.UserID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Matched {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *DiscoveryHandler) Quota(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	quotas, err := h.swipes.Quota(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotas)
}
