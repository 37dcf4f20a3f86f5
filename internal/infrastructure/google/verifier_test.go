package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/go-dating-api/internal/domain"
)

func stubValidate(accept string, p *idtoken.Payload) validateFunc {
	return func(_ context.Context, _, aud string) (*idtoken.Payload, error) {
		if aud != accept {
			return nil, errors.New("audience mismatch")
		}
		return p, nil
	}
}

func TestNewVerifier_SplitsAudiences(t *testing.T) {
	v := NewVerifier(" ios.apps , web.apps,,")
	assert.Equal(t, []string{"ios.apps", "web.apps"}, v.audiences)
}

func TestVerify_AcceptsSecondAudience(t *testing.T) {
	v := NewVerifier("ios.apps,web.apps")
	v.validate = stubValidate("web.apps", &idtoken.Payload{
		Issuer:  "https://accounts.google.com",
		Subject: "g-123",
		Claims: map[string]any{
			"email":          "ana@example.com",
			"email_verified": true,
			"given_name":     "Ana",
			"family_name":    "Lima",
			"picture":        "https://lh3.example/p.jpg",
		},
	})

	p, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Payload{
		Sub:           "g-123",
		Email:         "ana@example.com",
		EmailVerified: true,
		FirstName:     "Ana",
		LastName:      "Lima",
		Picture:       "https://lh3.example/p.jpg",
	}, p)
}

func TestVerify_Rejections(t *testing.T) {
	good := &idtoken.Payload{Issuer: "accounts.google.com", Subject: "g-1", Claims: map[string]any{}}
	tests := []struct {
		name      string
		clientIDs string
		validate  validateFunc
	}{
		{"not configured", "", stubValidate("a", good)},
		{"no audience matches", "a,b", stubValidate("c", good)},
		{"foreign issuer", "a", stubValidate("a", &idtoken.Payload{Issuer: "evil.example", Claims: map[string]any{}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.clientIDs)
			v.validate = tt.validate
			_, err := v.Verify(context.Background(), "tok")
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestVerify_MissingClaimsAreZero(t *testing.T) {
	v := NewVerifier("a")
	v.validate = stubValidate("a", &idtoken.Payload{Issuer: "accounts.google.com", Subject: "g-1", Claims: map[string]any{"email_verified": "true"}})

	p, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, p.EmailVerified)
	assert.Empty(t, p.Email)
}
