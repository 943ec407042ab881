package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrExpired             = errors.New("expired")
	ErrBadRequest          = errors.New("bad request")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
