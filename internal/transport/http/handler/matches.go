package handler

import (
	"net/http"

	"github.com/go-dating-api/internal/application/chat"
	"github.com/go-dating-api/internal/application/match"
	"github.com/go-dating-api/internal/domain"
)

// MatchHandler serves matches and their chat history.
type MatchHandler struct {
	matches match.Service
	chat    chat.Service
}

func NewMatchHandler(m match.Service, c chat.Service) *MatchHandler {
	return &MatchHandler{matches: m, chat: c}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	out, err := h.matches.List(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	m, err := h.matches.Get(r.Context(), c.UserID, pathParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MatchHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	if err := h.matches.Unmatch(r.Context(), c.UserID, pathParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "unmatched"})
}

// Messages lists history newest first; pass the oldest id seen as before
// to page back.
func (h *MatchHandler) Messages(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	msgs, err := h.chat.List(r.Context(), c.UserID, pathParam(r, "id"), r.URL.Query().Get("before"), queryInt(r, "limit"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MatchHandler) Send(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := h.chat.Send(r.Context(), c.UserID, pathParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MatchHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	n, err := h.chat.MarkRead(r.Context(), c.UserID, pathParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}
