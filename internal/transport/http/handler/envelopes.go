package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/go-dating-api/internal/domain"
	jwtinfra "github.com/go-dating-api/internal/infrastructure/jwt"
	"github.com/go-dating-api/internal/pkg/validate"
	"github.com/go-dating-api/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps login/register responses.
type AuthEnvelope struct {
	Bearer       string          `json:"Bearer,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Message      string          `json:"message,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PageEnvelope wraps cursor-paginated listings. An empty NextCursor means
// the last page was reached.
type PageEnvelope[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ValidationEnvelope lists the fields that failed validation.
type ValidationEnvelope struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PaywallEnvelope tells the client to show the upgrade screen.
type PaywallEnvelope struct {
	Error   string    `json:"error"`
	Paywall bool      `json:"paywall"`
	Kind    string    `json:"kind,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	ResetAt time.Time `json:"reset_at,omitzero"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error to its status code. Anything that does not
// wrap a domain sentinel is logged and answered with a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	var qe *domain.QuotaExceededError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationEnvelope{Error: ve.Error(), Fields: ve.Fields})
	case errors.As(err, &qe):
		writeJSON(w, http.StatusPaymentRequired, PaywallEnvelope{
			Error:   qe.Error(),
			Paywall: true,
			Kind:    qe.Quota.Kind,
			Limit:   qe.Quota.Limit,
			ResetAt: qe.Quota.ResetAt,
		})
	case errors.Is(err, domain.ErrPaymentRequired):
		writeJSON(w, http.StatusPaymentRequired, PaywallEnvelope{Error: err.Error(), Paywall: true})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.Log(r.Context()).WithError(err).Error("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into v and runs its validate tags. It writes the
// error response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		httpError(w, r, err)
		return false
	}
	return true
}

// claims returns the authenticated caller, answering 401 when absent.
func claims(w http.ResponseWriter, r *http.Request) (*jwtinfra.Claims, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return c, ok
}

func isAdmin(c *jwtinfra.Claims) bool { return c.Role == domain.RoleAdmin }

// pathParam returns the decoded URL parameter. Match ids contain '#',
// which clients send percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
