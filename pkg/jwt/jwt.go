package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// Manager handles JWT creation and validation for locally-issued access
// tokens (the email/password provider). OAuth provider tokens stay opaque
// and never pass through here.
type Manager struct {
	issuer string
	secret []byte
}

// NewManager creates a new JWT manager signing with HMAC-SHA256.
func NewManager(issuer, secret string) *Manager {
	return &Manager{issuer: issuer, secret: []byte(secret)}
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Type  string `json:"typ"`
}

// CreateAccessToken creates a signed access token JWT for the user.
func (m *Manager) CreateAccessToken(subject, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: email,
		Type:  "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign access token")
	}

	return signedToken, nil
}

// ValidateAccessToken parses and verifies a locally-issued access token.
func (m *Manager) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrTokenInvalid
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrap(apperrors.ErrTokenInvalid, err.Error())
	}

	if !token.Valid || claims.Type != "access" {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}
