package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtinfra "github.com/go-dating-api/internal/infrastructure/jwt"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func sign(t *testing.T, p *jwtinfra.Provider, userID string) string {
	t.Helper()
	tok, err := p.Sign(userID, "dev1", "user", "sess-"+userID)
	require.NoError(t, err)
	return tok
}

func TestAuth_Rejections(t *testing.T) {
	key := testKey(t)
	p := jwtinfra.NewProviderFromKey(key, time.Hour, "dating-api")
	stale := jwtinfra.NewProviderFromKey(key, -time.Hour, "dating-api")
	foreign := jwtinfra.NewProviderFromKey(testKey(t), time.Hour, "dating-api")

	tests := []struct {
		name    string
		header  string
		query   string
		wantErr string
	}{
		{name: "no credentials", wantErr: "missing or invalid authorization header"},
		{name: "basic scheme wins over query", header: "Basic dXNlcjpwYXNz", query: sign(t, p, "u1"), wantErr: "missing or invalid authorization header"},
		{name: "garbage", header: "Bearer not-a-real-token", wantErr: "invalid token"},
		{name: "foreign key", header: "Bearer " + sign(t, foreign, "u1"), wantErr: "invalid token"},
		{name: "expired", header: "Bearer " + sign(t, stale, "u1"), wantErr: "token expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Auth(p)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler reached")
			})).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, `Bearer realm="api"`, rr.Header().Get("WWW-Authenticate"))
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, rr.Body.String())
		})
	}
}

func TestAuth_InjectsClaims(t *testing.T) {
	p := jwtinfra.NewProviderFromKey(testKey(t), time.Hour, "dating-api")

	tests := []struct {
		name   string
		target string
		header string
	}{
		{name: "header", target: "/", header: "Bearer " + sign(t, p, "u1")},
		{name: "query on upgrade", target: "/v1/ws?token=" + sign(t, p, "u1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *jwtinfra.Claims
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Auth(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = ClaimsFromContext(r.Context())
			})).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			require.NotNil(t, got)
			assert.Equal(t, "u1", got.UserID)
			assert.Equal(t, "sess-u1", got.SessionID)
		})
	}
}
