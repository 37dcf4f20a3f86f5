package token

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken_IsHex64(t *testing.T) {
	tok, err := NewRefreshToken()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), tok)
}

func TestNewOTP_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := NewOTP()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp)
	}
}

func TestNewAlphanumeric_Length(t *testing.T) {
	tok, err := NewAlphanumeric(32)
	require.NoError(t, err)
	assert.Len(t, tok, 32)
	assert.Regexp(t, regexp.MustCompile(`^[a-zA-Z0-9]+$`), tok)
}
