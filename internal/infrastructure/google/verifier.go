package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/go-dating-api/internal/domain"
)

var issuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Payload is the identity carried by a verified Google ID token.
type Payload struct {
	Sub           string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Picture       string
}

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier checks Google ID tokens. Mobile and web builds use distinct
// OAuth clients, so any of the configured audiences is accepted.
type Verifier struct {
	audiences []string
	validate  validateFunc
}

// NewVerifier takes a comma separated list of OAuth client ids.
func NewVerifier(clientIDs string) *Verifier {
	var auds []string
	for _, a := range strings.Split(clientIDs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			auds = append(auds, a)
		}
	}
	return &Verifier{audiences: auds, validate: idtoken.Validate}
}

// Verify validates token and extracts the profile claims. Failures wrap
// domain.ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, token string) (*Payload, error) {
	if len(v.audiences) == 0 {
		return nil, fmt.Errorf("google sign-in not configured: %w", domain.ErrUnauthorized)
	}
	var (
		p    *idtoken.Payload
		errs []error
	)
	for _, aud := range v.audiences {
		got, err := v.validate(ctx, token, aud)
		if err == nil {
			p = got
			break
		}
		errs = append(errs, err)
	}
	if p == nil {
		return nil, fmt.Errorf("invalid google token: %v: %w", errors.Join(errs...), domain.ErrUnauthorized)
	}
	if !knownIssuer(p.Issuer) {
		return nil, fmt.Errorf("unexpected issuer %q: %w", p.Issuer, domain.ErrUnauthorized)
	}
	return &Payload{
		Sub:           p.Subject,
		Email:         claim[string](p, "email"),
		EmailVerified: claim[bool](p, "email_verified"),
		FirstName:     claim[string](p, "given_name"),
		LastName:      claim[string](p, "family_name"),
		Picture:       claim[string](p, "picture"),
	}, nil
}

func knownIssuer(iss string) bool {
	for _, i := range issuers {
		if iss == i {
			return true
		}
	}
	return false
}

func claim[T any](p *idtoken.Payload, name string) T {
	v, _ := p.Claims[name].(T)
	return v
}
