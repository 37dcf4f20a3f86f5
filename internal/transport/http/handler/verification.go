package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-dating-api/internal/application/media"
	"github.com/go-dating-api/internal/application/verification"
	"github.com/go-dating-api/internal/domain"
)

// VerificationHandler serves the verified-badge flow and its review queue.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// Submit reads a multipart form with a required `selfie` part and an
// optional `document` part.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 2*media.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(2 * media.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	var in verification.SubmitInput
	for _, part := range []struct {
		name string
		dst  **verification.Image
	}{{"selfie", &in.Selfie}, {"document", &in.Document}} {
		f, header, err := r.FormFile(part.name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+part.name+" part")
			return
		}
		defer closeFile(f)
		*part.dst = &verification.Image{Reader: f, Filename: header.Filename}
	}

	v, err := h.svc.Submit(r.Context(), c.UserID, in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func closeFile(f multipart.File) { _ = f.Close() }

func (h *VerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Status(r.Context(), c.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VerificationHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, next, err := h.svc.List(r.Context(), domain.VerificationStatus(q.Get("status")), queryInt(r, "limit"), q.Get("cursor"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[verification.Item]{Data: items, NextCursor: next})
}

func (h *VerificationHandler) Review(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req domain.ReviewVerificationRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.Review(r.Context(), c.UserID, pathParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
