package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/go-dating-api/internal/config"
	"github.com/go-dating-api/internal/domain"
)

// clockSkew tolerated between the API instances and mobile clocks.
const clockSkew = 30 * time.Second

// ErrTokenExpired marks a well-formed token past its expiry. It wraps
// domain.ErrUnauthorized.
var ErrTokenExpired = fmt.Errorf("token expired: %w", domain.ErrUnauthorized)

// Claims is the bearer payload. DeviceID and SessionID tie the token to
// the session that minted it so logout can be enforced per device.
type Claims struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 bearer tokens.
type Provider struct {
	key    *rsa.PrivateKey
	pub    *rsa.PublicKey
	expiry time.Duration
	issuer string
	parser *jwt.Parser
}

// NewProvider loads the PEM key pair named in cfg. The issuer is the app
// name so tokens from another deployment are refused.
func NewProvider(cfg *config.Config) (*Provider, error) {
	key, err := readPEM(cfg.JWTPrivateKeyPath, "private", jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, err
	}
	pub, err := readPEM(cfg.JWTPublicKeyPath, "public", jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, err
	}
	if !key.PublicKey.Equal(pub) {
		return nil, errors.New("jwt public key does not match private key")
	}
	return newProvider(key, pub, cfg.JWTExpiry, cfg.AppName), nil
}

func readPEM[K any](path, kind string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s key: %w", kind, err)
	}
	k, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse %s key: %w", kind, err)
	}
	return k, nil
}

// NewProviderFromKey builds a Provider around an in-memory key.
func NewProviderFromKey(key *rsa.PrivateKey, expiry time.Duration, issuer string) *Provider {
	return newProvider(key, &key.PublicKey, expiry, issuer)
}

func newProvider(key *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration, issuer string) *Provider {
	return &Provider{
		key:    key,
		pub:    pub,
		expiry: expiry,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

func (p *Provider) Sign(userID, deviceID, role, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		DeviceID:  deviceID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
}

// Verify parses and validates a bearer token. Every failure wraps
// domain.ErrUnauthorized; expiry is reported as ErrTokenExpired.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := p.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return p.pub, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("invalid token: %v: %w", err, domain.ErrUnauthorized)
	case claims.UserID == "":
		return nil, fmt.Errorf("token has no user: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}
