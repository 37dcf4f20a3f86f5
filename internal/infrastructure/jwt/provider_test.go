package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/config"
	"github.com/go-dating-api/internal/domain"
)

func writeKeys(t *testing.T) (*rsa.PrivateKey, *config.Config) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	return privKey, &config.Config{
		AppName:           "dating-api",
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
	}
}

func TestProvider_SignVerifyRoundTrip(t *testing.T) {
	_, cfg := writeKeys(t)
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	tok, err := p.Sign("u1", "d1", "admin", "s1")
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "d1", claims.DeviceID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "dating-api", claims.Issuer)
}

func TestProvider_RejectsExpired(t *testing.T) {
	key, _ := writeKeys(t)
	p := NewProviderFromKey(key, -time.Minute, "dating-api")
	tok, err := p.Sign("u1", "d1", "user", "s1")
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProvider_ToleratesClockSkew(t *testing.T) {
	key, _ := writeKeys(t)
	p := NewProviderFromKey(key, -10*time.Second, "dating-api")
	tok, err := p.Sign("u1", "d1", "user", "s1")
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.NoError(t, err)
}

func TestProvider_RequiresExpiry(t *testing.T) {
	key, _ := writeKeys(t)
	p := NewProviderFromKey(key, time.Hour, "dating-api")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"user_id": "u1", "iss": "dating-api"}).SignedString(key)
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProvider_RejectsForeignIssuerAndKey(t *testing.T) {
	key, _ := writeKeys(t)
	p := NewProviderFromKey(key, time.Hour, "dating-api")

	other := NewProviderFromKey(key, time.Hour, "someone-else")
	tok, err := other.Sign("u1", "d1", "user", "s1")
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.Error(t, err)

	otherKey, _ := writeKeys(t)
	forged, err := NewProviderFromKey(otherKey, time.Hour, "dating-api").Sign("u1", "d1", "admin", "s1")
	require.NoError(t, err)
	_, err = p.Verify(forged)
	assert.Error(t, err)
}

func TestProvider_RejectsHMAC(t *testing.T) {
	key, _ := writeKeys(t)
	p := NewProviderFromKey(key, time.Hour, "dating-api")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1", "iss": "dating-api"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_MissingKeyFile(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: filepath.Join(t.TempDir(), "nope.pem")})
	assert.ErrorContains(t, err, "read private key")
}

func TestNewProvider_MismatchedPair(t *testing.T) {
	_, cfg := writeKeys(t)
	_, other := writeKeys(t)
	cfg.JWTPublicKeyPath = other.JWTPublicKeyPath
	_, err := NewProvider(cfg)
	assert.ErrorContains(t, err, "does not match")
}
