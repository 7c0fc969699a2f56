package anonymous

import (
	"time"

	"github.com/google/uuid"
)

// User is a time-limited unauthenticated identity usable before account
// creation.
type User struct {
	ID           string
	SessionID    string
	DeviceID     string
	Metadata     map[string]string
	IsActive     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
	TerminatedAt *time.Time
	ExpiredAt    *time.Time
}

// NewUser creates an active anonymous user with the given time-to-live.
func NewUser(deviceID string, ttl time.Duration) *User {
	now := time.Now().UTC()
	return &User{
		ID:        "anon_" + uuid.New().String(),
		SessionID: uuid.New().String(),
		DeviceID:  deviceID,
		Metadata:  map[string]string{},
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the TTL has elapsed.
func (u *User) IsExpired() bool {
	return !time.Now().UTC().Before(u.ExpiresAt)
}

// Terminate deactivates the user and records when.
func (u *User) Terminate() {
	now := time.Now().UTC()
	u.IsActive = false
	u.TerminatedAt = &now
}

// MarkExpired deactivates the user as part of an expiry sweep.
func (u *User) MarkExpired() {
	now := time.Now().UTC()
	u.IsActive = false
	u.ExpiredAt = &now
}
