package user

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod identifies how an account can authenticate.
type AuthMethod string

const (
	MethodPassword  AuthMethod = "password"
	MethodOAuth     AuthMethod = "oauth"
	MethodPhone     AuthMethod = "phone"
	MethodBiometric AuthMethod = "biometric"
)

// User represents the core identity record.
// This is the aggregate root for user-related operations.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	EmailVerified bool
	IsAnonymous   bool
	// AnonymousSessionID links back to the anonymous session this account was
	// converted from, when applicable.
	AnonymousSessionID string
	AuthMethods        []AuthMethod
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewUser creates a permanent user with the given email and display name.
func NewUser(email, displayName string) *User {
	now := time.Now().UTC()
	return &User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// VerifyEmail marks the user's email as verified.
func (u *User) VerifyEmail() {
	u.EmailVerified = true
	u.UpdatedAt = time.Now().UTC()
}

// LinkMethod records an authentication method for the account. Linking an
// already-linked method is a no-op.
func (u *User) LinkMethod(m AuthMethod) {
	for _, existing := range u.AuthMethods {
		if existing == m {
			return
		}
	}
	u.AuthMethods = append(u.AuthMethods, m)
	u.UpdatedAt = time.Now().UTC()
}

// UnlinkMethod removes an authentication method from the account.
func (u *User) UnlinkMethod(m AuthMethod) {
	for i, existing := range u.AuthMethods {
		if existing == m {
			u.AuthMethods = append(u.AuthMethods[:i], u.AuthMethods[i+1:]...)
			u.UpdatedAt = time.Now().UTC()
			return
		}
	}
}

// HasMethod reports whether the method is linked.
func (u *User) HasMethod(m AuthMethod) bool {
	for _, existing := range u.AuthMethods {
		if existing == m {
			return true
		}
	}
	return false
}

// UpdateProfile changes the display name.
func (u *User) UpdateProfile(displayName string) {
	u.DisplayName = displayName
	u.UpdatedAt = time.Now().UTC()
}
