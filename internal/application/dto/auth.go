// Package dto holds request and response shapes for the HTTP delivery
// layer.
package dto

import (
	"time"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	DeviceName  string `json:"device_name"`
	Platform    string `json:"platform"`
}

// LoginRequest represents a password sign-in request.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceName string `json:"device_name"`
	Platform   string `json:"platform"`
}

// SessionResponse represents the established session returned by sign-in,
// sign-up, and conversion endpoints.
type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewSessionResponse builds the response from an established session.
func NewSessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		SessionID:    sess.ID,
		UserID:       sess.User.ID,
		Email:        sess.User.Email,
		DisplayName:  sess.User.DisplayName,
		AccessToken:  sess.Tokens.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: sess.Tokens.RefreshToken,
		ExpiresAt:    sess.Tokens.ExpiresAt,
	}
}

// SessionInfoResponse is the diagnostic session snapshot.
type SessionInfoResponse struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	IsValid      bool      `json:"is_valid"`
	TimeToExpiry string    `json:"time_to_expiry"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID        string   `json:"user_id"`
	Email         string   `json:"email"`
	DisplayName   string   `json:"display_name,omitempty"`
	EmailVerified bool     `json:"email_verified"`
	AuthMethods   []string `json:"auth_methods"`
}

// NewUserResponse builds the response from a domain user.
func NewUserResponse(u *user.User) UserResponse {
	methods := make([]string, 0, len(u.AuthMethods))
	for _, m := range u.AuthMethods {
		methods = append(methods, string(m))
	}
	return UserResponse{
		UserID:        u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		AuthMethods:   methods,
	}
}

// OAuthBeginRequest selects the provider to authorize against.
type OAuthBeginRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// OAuthBeginResponse carries the authorization URL to open.
type OAuthBeginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// OAuthCallbackRequest completes the authorization-code round trip.
type OAuthCallbackRequest struct {
	State      string `json:"state" binding:"required"`
	Code       string `json:"code" binding:"required"`
	DeviceName string `json:"device_name"`
	Platform   string `json:"platform"`
}

// AnonymousSessionRequest starts a guest session for a device.
type AnonymousSessionRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
}

// AnonymousSessionResponse describes a guest session.
type AnonymousSessionResponse struct {
	AnonymousID string    `json:"anonymous_id"`
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ConvertAnonymousRequest upgrades a guest to a full account.
type ConvertAnonymousRequest struct {
	AnonymousID string `json:"anonymous_id" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	DeviceName  string `json:"device_name"`
	Platform    string `json:"platform"`
}

// VerifyEmailRequest carries the one-time verification code.
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// SchedulerStatsResponse is the refresh scheduler diagnostic snapshot.
type SchedulerStatsResponse struct {
	State         string `json:"state"`
	Threshold     string `json:"threshold"`
	CheckInterval string `json:"check_interval"`
	LastRefresh   string `json:"last_refresh,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	Attempts      uint64 `json:"attempts"`
	Failures      uint64 `json:"failures"`
}
