package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
)

// TokenPair bundles the opaque access and refresh tokens with their expiry.
// A pair is owned by exactly one session and is superseded atomically on
// refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired reports whether the access token is past its expiry.
func (t TokenPair) IsExpired() bool {
	return !time.Now().UTC().Before(t.ExpiresAt)
}

// TimeToExpiry returns the remaining lifetime; negative when already expired.
func (t TokenPair) TimeToExpiry() time.Duration {
	return time.Until(t.ExpiresAt)
}

// ToJSON encodes the pair for the secure storage collaborator. The on-device
// encoding beyond this JSON is the collaborator's concern.
func (t TokenPair) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// ParseTokenPair decodes a stored pair.
func ParseTokenPair(data []byte) (TokenPair, error) {
	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// DeviceInfo holds device/client metadata attached to a session.
type DeviceInfo struct {
	DeviceName string `json:"device_name,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Platform   string `json:"platform,omitempty"` // android, ios, desktop, web
}

// Session binds a user to a token pair and activity state.
type Session struct {
	ID        string
	User      *user.User
	Tokens    TokenPair
	Device    DeviceInfo
	IsActive  bool
	CreatedAt time.Time
}

// New creates an active session for the user. Callers must validate the
// token pair first; see services.SessionManager.
func New(u *user.User, tokens TokenPair, device DeviceInfo) *Session {
	return &Session{
		ID:        uuid.New().String(),
		User:      u,
		Tokens:    tokens,
		Device:    device,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// IsValid reports whether the session is active and its tokens unexpired.
func (s *Session) IsValid() bool {
	return s.IsActive && !s.Tokens.IsExpired()
}

// WithTokens returns a copy of the session carrying the new token pair. The
// old pair is discarded.
func (s *Session) WithTokens(tokens TokenPair) *Session {
	clone := *s
	clone.Tokens = tokens
	return &clone
}

// Info is a read-only diagnostic snapshot of a session.
type Info struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	UserEmail    string        `json:"user_email,omitempty"`
	Device       DeviceInfo    `json:"device"`
	IsActive     bool          `json:"is_active"`
	IsValid      bool          `json:"is_valid"`
	TimeToExpiry time.Duration `json:"time_to_expiry"`
	ExpiresAt    time.Time     `json:"expires_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Snapshot converts the session to its diagnostic view.
func (s *Session) Snapshot() Info {
	info := Info{
		SessionID:    s.ID,
		Device:       s.Device,
		IsActive:     s.IsActive,
		IsValid:      s.IsValid(),
		TimeToExpiry: s.Tokens.TimeToExpiry(),
		ExpiresAt:    s.Tokens.ExpiresAt,
		CreatedAt:    s.CreatedAt,
	}
	if s.User != nil {
		info.UserID = s.User.ID
		info.UserEmail = s.User.Email
	}
	return info
}
