package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/favorize-app/multi-auth-sub004/internal/application/dto"
	"github.com/favorize-app/multi-auth-sub004/internal/application/services"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	engine *services.AuthEngine
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(engine *services.AuthEngine) *AuthHandler {
	return &AuthHandler{engine: engine}
}

func deviceFromRequest(c *gin.Context, name, platform string) session.DeviceInfo {
	return session.DeviceInfo{
		DeviceName: name,
		UserAgent:  c.GetHeader("User-Agent"),
		Platform:   platform,
	}
}

// Register handles account creation and signs the new user in.
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	sess, err := h.engine.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName,
		deviceFromRequest(c, req.DeviceName, req.Platform))
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSessionResponse(sess))
}

// Login handles password sign-in.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	sess, err := h.engine.PasswordSignIn(c.Request.Context(), req.Email, req.Password,
		deviceFromRequest(c, req.DeviceName, req.Platform))
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(sess))
}

// Logout ends the current session.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.engine.SignOut(c.Request.Context()); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Refresh forces an immediate token refresh.
// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	if err := h.engine.RefreshNow(c.Request.Context()); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tokens refreshed"})
}

// OAuthBegin starts the provider authorization flow.
// POST /auth/oauth/begin
func (h *AuthHandler) OAuthBegin(c *gin.Context) {
	var req dto.OAuthBeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	authURL, state, err := h.engine.BeginOAuth(req.Provider)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OAuthBeginResponse{AuthorizationURL: authURL, State: state})
}

// OAuthCallback finishes the provider authorization flow.
// POST /auth/oauth/callback
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	var req dto.OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	sess, err := h.engine.CompleteOAuth(c.Request.Context(), req.State, req.Code,
		deviceFromRequest(c, req.DeviceName, req.Platform))
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(sess))
}

// SendVerification delivers an email verification code to the current user.
// POST /auth/verify/send
func (h *AuthHandler) SendVerification(c *gin.Context) {
	if err := h.engine.SendEmailVerification(c.Request.Context()); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// VerifyEmail checks the submitted code.
// POST /auth/verify
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if err := h.engine.VerifyEmail(c.Request.Context(), req.Code); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// EnableBiometric turns on biometric unlock for the current user.
// POST /auth/biometric/enable
func (h *AuthHandler) EnableBiometric(c *gin.Context) {
	if err := h.engine.EnableBiometric(c.Request.Context()); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "biometric enabled"})
}

// DisableBiometric turns off biometric unlock.
// POST /auth/biometric/disable
func (h *AuthHandler) DisableBiometric(c *gin.Context) {
	if err := h.engine.DisableBiometric(c.Request.Context()); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "biometric disabled"})
}
