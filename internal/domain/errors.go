package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrPaymentRequired = errors.New("payment required")

	// ErrMatchClosed is returned for chat actions on an unmatched pair.
	ErrMatchClosed = fmt.Errorf("match is closed: %w", ErrForbidden)
)
