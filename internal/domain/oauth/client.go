// Package oauth defines the credential/OAuth provider contract the core
// depends on. Concrete wire protocols (Google, GitHub, ...) live behind this
// interface and are collaborators, not part of the core.
package oauth

import (
	"context"
	"time"
)

// ChallengeMethod is the PKCE code challenge transformation.
type ChallengeMethod string

const (
	MethodS256  ChallengeMethod = "S256"
	MethodPlain ChallengeMethod = "plain"
)

// UserInfo is the identity profile returned by a provider.
type UserInfo struct {
	ProviderUserID string
	Email          string
	DisplayName    string
	EmailVerified  bool
	Provider       string
}

// Tokens is the raw token material returned by a provider. Access and
// refresh tokens are opaque to the core.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ExchangeResult bundles tokens with the user they authenticate.
type ExchangeResult struct {
	Tokens   Tokens
	UserInfo UserInfo
}

// Client is the capability contract implemented per provider.
type Client interface {
	// AuthorizationURL builds the provider authorization URL for the
	// PKCE-protected code flow.
	AuthorizationURL(state, codeChallenge string, method ChallengeMethod) string

	// ExchangeCode trades a single-use authorization code (plus the PKCE
	// verifier) for tokens and user info. Never retried by the core.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*ExchangeResult, error)

	// Refresh trades a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)

	// UserInfo fetches the profile for a valid access token.
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)

	// Revoke invalidates a token at the provider. Reports whether the
	// provider accepted the revocation.
	Revoke(ctx context.Context, token string) (bool, error)

	// Validate checks a token with the provider without refreshing it.
	Validate(ctx context.Context, token string) (bool, error)
}
