package handler

import (
	"net/http"

	"github.com/go-dating-api/internal/application/media"
)

// FileHandler serves stored media by id.
type FileHandler struct {
	svc media.Service
}

func NewFileHandler(svc media.Service) *FileHandler { return &FileHandler{svc: svc} }

// Get returns the file metadata with a view URL. Private files are visible
// to their uploader and to admins only.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	f, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if f.IsPrivate && f.UploadedByUserID != c.UserID && !isAdmin(c) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	u, err := h.svc.ViewURL(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	f.URL = u
	writeJSON(w, http.StatusOK, f)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), pathParam(r, "id"), c.UserID, isAdmin(c)); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "file deleted"})
}
