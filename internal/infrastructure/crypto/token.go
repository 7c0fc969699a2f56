package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/oauth"
)

// TokenGenerator provides cryptographically secure token generation.
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken generates a cryptographically secure random token.
// Returns the token as a URL-safe base64 string.
func (g *TokenGenerator) GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateRefreshToken generates a refresh token (256 bits / 32 bytes).
func (g *TokenGenerator) GenerateRefreshToken() (string, error) {
	return g.GenerateToken(32)
}

// GenerateState generates an OAuth state parameter.
func (g *TokenGenerator) GenerateState() (string, error) {
	return g.GenerateToken(16)
}

// HashToken creates a SHA-256 hash of a token for secure storage.
// Refresh tokens are stored as hashes so they cannot be leaked at rest.
func (g *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// PKCECodeVerifier generates a PKCE code verifier (43-128 characters).
func (g *TokenGenerator) PKCECodeVerifier() (string, error) {
	// 32 random bytes become 43 base64 chars
	return g.GenerateToken(32)
}

// PKCECodeChallenge generates a PKCE code challenge from a verifier.
// Uses S256 method: BASE64URL(SHA256(code_verifier))
func (g *TokenGenerator) PKCECodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyPKCE verifies a PKCE code verifier against a stored challenge.
// plain is accepted only for testing.
func (g *TokenGenerator) VerifyPKCE(verifier, challenge string, method oauth.ChallengeMethod) bool {
	switch method {
	case oauth.MethodS256:
		return g.PKCECodeChallenge(verifier) == challenge
	case oauth.MethodPlain:
		return verifier == challenge
	default:
		return false
	}
}
