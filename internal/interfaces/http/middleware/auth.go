package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/jwt"
)

const (
	// ContextKeyUserID is the context key for user ID.
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyEmail is the context key for the token's email claim.
	ContextKeyEmail ContextKey = "email"
)

// AuthMiddleware validates bearer access tokens.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth returns a middleware that requires a valid access token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c, "invalid Authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			if apperrors.Is(err, apperrors.ErrTokenExpired) {
				unauthorized(c, "access token expired")
				return
			}
			unauthorized(c, "invalid access token")
			return
		}

		c.Set(string(ContextKeyUserID), claims.Subject)
		c.Set(string(ContextKeyEmail), claims.Email)
		c.Next()
	}
}

// GetUserID extracts the authenticated user ID from the gin context.
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(string(ContextKeyUserID))
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func unauthorized(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
}
