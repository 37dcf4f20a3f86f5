package handler

import (
	"context"
	"net/http"

	"github.com/go-dating-api/internal/domain"
)

type presenceReader interface {
	Get(ctx context.Context, userID string) (*domain.Presence, error)
}

// PresenceHandler reports whether a user holds a live chat connection.
type PresenceHandler struct {
	store presenceReader
}

func NewPresenceHandler(store presenceReader) *PresenceHandler {
	return &PresenceHandler{store: store}
}

func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := claims(w, r); !ok {
		return
	}
	p, err := h.store.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
