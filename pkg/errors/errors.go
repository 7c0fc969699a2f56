package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure so callers can branch on it
// without string matching.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindValidation         Kind = "validation_error"
	KindNetwork            Kind = "network_error"
	KindProvider           Kind = "provider_error"
	KindTokenExpired       Kind = "token_expired"
	KindTokenInvalid       Kind = "token_invalid"
	KindRateLimited        Kind = "rate_limited"
	KindMaxSessions        Kind = "max_sessions_reached"
	KindStorage            Kind = "storage_error"
	KindNotSupported       Kind = "not_supported"
	KindInternal           Kind = "internal_error"
)

// Domain errors - each maps to a taxonomy kind via KindOf.
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")

	// Token errors
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrTokenMismatch = errors.New("token mismatch")

	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrMaxSessionsReached = errors.New("maximum concurrent sessions reached")

	// PKCE errors
	ErrInvalidCodeChallenge = errors.New("invalid code_challenge")
	ErrInvalidCodeVerifier  = errors.New("invalid code_verifier")

	// Collaborator errors
	ErrStorage      = errors.New("secure storage failure")
	ErrNetwork      = errors.New("network failure")
	ErrProvider     = errors.New("identity provider rejected the request")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotSupported = errors.New("capability not supported on this platform")

	// General errors
	ErrValidation = errors.New("validation error")
	ErrInternal   = errors.New("internal error")
)

// AuthError is a typed failure surfaced by every public operation. It wraps
// the underlying cause and tags it with a taxonomy Kind and a stable
// machine-readable code.
type AuthError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// New creates an AuthError of the given kind. The code defaults to the kind
// itself.
func New(kind Kind, message string) *AuthError {
	return &AuthError{Kind: kind, Code: string(kind), Message: message}
}

// WithCause attaches the underlying error.
func (e *AuthError) WithCause(err error) *AuthError {
	e.Err = err
	return e
}

// Validation builds a field-level validation failure.
func Validation(field, message string) *AuthError {
	return &AuthError{
		Kind:    KindValidation,
		Code:    string(KindValidation),
		Message: fmt.Sprintf("%s: %s", field, message),
		Err:     ErrValidation,
	}
}

// KindOf reports the taxonomy kind of err. Unrecognized errors classify as
// internal.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return KindInvalidCredentials
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrSessionExpired):
		return KindTokenExpired
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenMismatch), errors.Is(err, ErrInvalidCodeVerifier):
		return KindTokenInvalid
	case errors.Is(err, ErrMaxSessionsReached):
		return KindMaxSessions
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrNotSupported):
		return KindNotSupported
	default:
		return KindInternal
	}
}

// AsAuthError converts any error into an AuthError, classifying it first.
// AuthErrors pass through unchanged.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	kind := KindOf(err)
	return &AuthError{Kind: kind, Code: string(kind), Message: err.Error(), Err: err}
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
