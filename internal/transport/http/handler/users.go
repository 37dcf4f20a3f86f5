package handler

import (
	"net/http"
	"strconv"

	"github.com/go-dating-api/internal/application/user"
	"github.com/go-dating-api/internal/domain"
)

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.RegisterWithSession(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authEnvelope(result))
}

// List serves the admin user listing. Filters: q, role, verified.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.UserFilter{Query: q.Get("q"), Role: q.Get("role")}
	if v := q.Get("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "verified must be true or false")
			return
		}
		filter.Verified = &b
	}
	users, next, err := h.svc.List(r.Context(), filter, queryInt(r, "limit"), q.Get("cursor"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.User]{Data: users, NextCursor: next})
}

// targetID resolves {id}, accepting "me" for the caller. Only admins may
// address another account.
func targetID(w http.ResponseWriter, r *http.Request) (id string, admin bool, ok bool) {
	c, ok := claims(w, r)
	if !ok {
		return "", false, false
	}
	id = pathParam(r, "id")
	if id == "me" {
		id = c.UserID
	}
	if id != c.UserID && !isAdmin(c) {
		writeError(w, http.StatusForbidden, "cannot access another user")
		return "", false, false
	}
	return id, isAdmin(c), true
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _, ok := targetID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, admin, ok := targetID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	if !admin && (req.Role != nil || req.Enable != nil) {
		writeError(w, http.StatusForbidden, "only admins may change role or enable")
		return
	}
	u, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := targetID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "user deleted"})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), c.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}
