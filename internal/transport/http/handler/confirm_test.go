package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/go-dating-api/internal/application/auth"
	"github.com/go-dating-api/internal/domain"
)

// fakeAuth records confirmation calls; other auth.Service methods panic.
type fakeAuth struct {
	auth.Service
	requested []string
	validated []string
	err       error
}

func (f *fakeAuth) RequestEmailConfirmation(_ context.Context, userID string) error {
	f.requested = append(f.requested, "email:"+userID)
	return f.err
}
func (f *fakeAuth) ValidateEmailToken(_ context.Context, userID, token string) error {
	f.validated = append(f.validated, "email:"+userID+":"+token)
	return f.err
}
func (f *fakeAuth) RequestPhoneConfirmation(_ context.Context, userID string) error {
	f.requested = append(f.requested, "phone:"+userID)
	return f.err
}
func (f *fakeAuth) ValidatePhoneOTP(_ context.Context, userID, otp string) error {
	f.validated = append(f.validated, "phone:"+userID+":"+otp)
	return f.err
}

func newConfirmRouter(svc auth.Service) http.Handler {
	h := NewConfirmHandler(svc)
	r := chi.NewRouter()
	r.Post("/confirm-email/{action}", h.Email)
	r.Post("/confirm-phone/{action}", h.Phone)
	return r
}

func TestConfirm_Flows(t *testing.T) {
	p := newTestJWTProvider(t)
	tests := []struct {
		name     string
		target   string
		body     string
		want     int
		wantCall string
	}{
		{"email request", "/confirm-email/request", "", http.StatusOK, "email:u1"},
		{"email validate", "/confirm-email/validate-code", `{"token":"abc"}`, http.StatusOK, "email:u1:abc"},
		{"email missing token", "/confirm-email/validate-code", `{}`, http.StatusUnprocessableEntity, ""},
		{"phone request", "/confirm-phone/request", "", http.StatusOK, "phone:u1"},
		{"phone validate", "/confirm-phone/validate-code", `{"otp":"123456"}`, http.StatusOK, "phone:u1:123456"},
		{"phone otp not numeric", "/confirm-phone/validate-code", `{"otp":"12a456"}`, http.StatusUnprocessableEntity, ""},
		{"unknown action", "/confirm-phone/resend", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuth{}
			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			rr := httptest.NewRecorder()
			serveAuthed(p, newConfirmRouter(svc), rr, bearerReq(t, p, http.MethodPost, tt.target, "u1", domain.RoleUser, body))

			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			calls := append(svc.requested, svc.validated...)
			if tt.wantCall == "" {
				assert.Empty(t, calls)
			} else {
				assert.Equal(t, []string{tt.wantCall}, calls)
			}
		})
	}
}

func TestConfirm_WrongCode(t *testing.T) {
	p := newTestJWTProvider(t)
	rr := httptest.NewRecorder()
	req := bearerReq(t, p, http.MethodPost, "/confirm-email/validate-code", "u1", domain.RoleUser, []byte(`{"token":"stale"}`))
	serveAuthed(p, newConfirmRouter(&fakeAuth{err: domain.ErrUnauthorized}), rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
