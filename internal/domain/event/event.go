// Package event defines the closed set of authentication events carried by
// the event bus. Events are immutable once constructed and carry only the
// data relevant to their transition; Metadata is attached at dispatch time.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// Family groups event kinds so subscribers can filter a whole variant family.
type Family string

const (
	FamilyAuthentication Family = "authentication"
	FamilySession        Family = "session"
	FamilyToken          Family = "token"
	FamilyAnonymous      Family = "anonymous"
	FamilyBiometric      Family = "biometric"
)

// Kind identifies a single event variant.
type Kind string

const (
	KindSignInRequested Kind = "sign_in_requested"
	KindSignInCompleted Kind = "sign_in_completed"
	KindSignInFailed    Kind = "sign_in_failed"

	KindSignUpCompleted Kind = "sign_up_completed"
	KindSignUpFailed    Kind = "sign_up_failed"

	KindSignOutRequested Kind = "sign_out_requested"
	KindSignOutCompleted Kind = "sign_out_completed"
	KindSignOutFailed    Kind = "sign_out_failed"

	KindSessionCreated Kind = "session_created"
	KindSessionUpdated Kind = "session_updated"
	KindSessionEnded   Kind = "session_ended"
	KindSessionExpired Kind = "session_expired"

	KindTokenRefreshCompleted Kind = "token_refresh_completed"
	KindTokenRefreshFailed    Kind = "token_refresh_failed"

	KindAnonymousSessionCreated    Kind = "anonymous_session_created"
	KindAnonymousSessionConverted  Kind = "anonymous_session_converted"
	KindAnonymousSessionTerminated Kind = "anonymous_session_terminated"
	KindAnonymousSessionExpired    Kind = "anonymous_session_expired"

	KindBiometricEnabled  Kind = "biometric_enabled"
	KindBiometricDisabled Kind = "biometric_disabled"
	KindBiometricFailed   Kind = "biometric_failed"
)

// Event is implemented by every variant in this package and nowhere else.
type Event interface {
	Kind() Kind
	Family() Family
}

// Metadata wraps every event placed on the bus.
type Metadata struct {
	Timestamp     time.Time
	CorrelationID string
	UserID        string
	SessionID     string
	Source        string
}

// NewMetadata builds metadata stamped with the current time and a fresh
// correlation ID.
func NewMetadata(source string) Metadata {
	return Metadata{
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Source:        source,
	}
}

// WithUser returns a copy carrying the user ID.
func (m Metadata) WithUser(userID string) Metadata {
	m.UserID = userID
	return m
}

// WithSession returns a copy carrying the session ID.
func (m Metadata) WithSession(sessionID string) Metadata {
	m.SessionID = sessionID
	return m
}

// --- Authentication family ---

type SignInRequested struct {
	Method string // "password", "oauth", "biometric", "anonymous"
}

func (SignInRequested) Kind() Kind     { return KindSignInRequested }
func (SignInRequested) Family() Family { return FamilyAuthentication }

type SignInCompleted struct {
	UserID    string
	SessionID string
	Method    string
}

func (SignInCompleted) Kind() Kind     { return KindSignInCompleted }
func (SignInCompleted) Family() Family { return FamilyAuthentication }

type SignInFailed struct {
	Method string
	Err    *errors.AuthError
}

func (SignInFailed) Kind() Kind     { return KindSignInFailed }
func (SignInFailed) Family() Family { return FamilyAuthentication }

type SignUpCompleted struct {
	UserID string
	Email  string
}

func (SignUpCompleted) Kind() Kind     { return KindSignUpCompleted }
func (SignUpCompleted) Family() Family { return FamilyAuthentication }

type SignUpFailed struct {
	Email string
	Err   *errors.AuthError
}

func (SignUpFailed) Kind() Kind     { return KindSignUpFailed }
func (SignUpFailed) Family() Family { return FamilyAuthentication }

type SignOutRequested struct {
	UserID string
}

func (SignOutRequested) Kind() Kind     { return KindSignOutRequested }
func (SignOutRequested) Family() Family { return FamilyAuthentication }

type SignOutCompleted struct {
	UserID string
}

func (SignOutCompleted) Kind() Kind     { return KindSignOutCompleted }
func (SignOutCompleted) Family() Family { return FamilyAuthentication }

type SignOutFailed struct {
	UserID string
	Err    *errors.AuthError
}

func (SignOutFailed) Kind() Kind     { return KindSignOutFailed }
func (SignOutFailed) Family() Family { return FamilyAuthentication }

// --- Session family ---

type SessionCreated struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

func (SessionCreated) Kind() Kind     { return KindSessionCreated }
func (SessionCreated) Family() Family { return FamilySession }

type SessionUpdated struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

func (SessionUpdated) Kind() Kind     { return KindSessionUpdated }
func (SessionUpdated) Family() Family { return FamilySession }

type SessionEnded struct {
	SessionID string
	UserID    string
}

func (SessionEnded) Kind() Kind     { return KindSessionEnded }
func (SessionEnded) Family() Family { return FamilySession }

// SessionExpired signals that the session can no longer be refreshed and the
// caller should treat it as terminated.
type SessionExpired struct {
	SessionID string
	UserID    string
	Reason    string
}

func (SessionExpired) Kind() Kind     { return KindSessionExpired }
func (SessionExpired) Family() Family { return FamilySession }

// --- Token family ---

type TokenRefreshCompleted struct {
	SessionID string
	ExpiresAt time.Time
}

func (TokenRefreshCompleted) Kind() Kind     { return KindTokenRefreshCompleted }
func (TokenRefreshCompleted) Family() Family { return FamilyToken }

type TokenRefreshFailed struct {
	SessionID string
	Attempt   int
	Terminal  bool
	Err       *errors.AuthError
}

func (TokenRefreshFailed) Kind() Kind     { return KindTokenRefreshFailed }
func (TokenRefreshFailed) Family() Family { return FamilyToken }

// --- Anonymous family ---

type AnonymousSessionCreated struct {
	AnonymousID string
	SessionID   string
	ExpiresAt   time.Time
}

func (AnonymousSessionCreated) Kind() Kind     { return KindAnonymousSessionCreated }
func (AnonymousSessionCreated) Family() Family { return FamilyAnonymous }

type AnonymousSessionConverted struct {
	AnonymousID string
	UserID      string
}

func (AnonymousSessionConverted) Kind() Kind     { return KindAnonymousSessionConverted }
func (AnonymousSessionConverted) Family() Family { return FamilyAnonymous }

type AnonymousSessionTerminated struct {
	AnonymousID string
}

func (AnonymousSessionTerminated) Kind() Kind     { return KindAnonymousSessionTerminated }
func (AnonymousSessionTerminated) Family() Family { return FamilyAnonymous }

type AnonymousSessionExpired struct {
	AnonymousID string
}

func (AnonymousSessionExpired) Kind() Kind     { return KindAnonymousSessionExpired }
func (AnonymousSessionExpired) Family() Family { return FamilyAnonymous }

// --- Biometric family ---

type BiometricEnabled struct {
	UserID string
}

func (BiometricEnabled) Kind() Kind     { return KindBiometricEnabled }
func (BiometricEnabled) Family() Family { return FamilyBiometric }

type BiometricDisabled struct {
	UserID string
}

func (BiometricDisabled) Kind() Kind     { return KindBiometricDisabled }
func (BiometricDisabled) Family() Family { return FamilyBiometric }

type BiometricFailed struct {
	UserID string
	Err    *errors.AuthError
}

func (BiometricFailed) Kind() Kind     { return KindBiometricFailed }
func (BiometricFailed) Family() Family { return FamilyBiometric }
