// Package common defines shared constants and sentinel errors used across
// the gateway layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input validation errors, surfaced to the caller as-is.
	ErrorValidation = errors.New("validation error")

	// Credential minting errors.
	ErrorInvalidKey    = errors.New("invalid object key")
	ErrorTTLOutOfRange = errors.New("ttl out of range")

	// Catalog errors. An unknown tier means the catalog and the tier enum
	// disagree, which is a configuration defect, not a user mistake.
	ErrorUnknownTier = errors.New("unknown account tier")

	// Upload session errors, terminal for the session in question.
	ErrorSessionNotFound   = errors.New("upload session not found")
	ErrorCredentialExpired = errors.New("credential expired")
	ErrorUploadRejected    = errors.New("upload rejected by storage")

	// Transient storage-side errors, safe to retry as a whole operation.
	ErrorStorageUnavailable = errors.New("storage unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
