package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/favorize-app/multi-auth-sub004/internal/application/dto"
	"github.com/favorize-app/multi-auth-sub004/internal/application/services"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// SessionHandler exposes session and guest-session endpoints.
type SessionHandler struct {
	sessions  *services.SessionManager
	scheduler *services.RefreshScheduler
	engine    *services.AuthEngine
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *services.SessionManager, scheduler *services.RefreshScheduler, engine *services.AuthEngine) *SessionHandler {
	return &SessionHandler{sessions: sessions, scheduler: scheduler, engine: engine}
}

// Current returns the current session snapshot.
// GET /auth/session
func (h *SessionHandler) Current(c *gin.Context) {
	info := h.sessions.GetSessionInfo()
	if info == nil {
		handleAuthError(c, apperrors.ErrSessionNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.SessionInfoResponse{
		SessionID:    info.SessionID,
		UserID:       info.UserID,
		Email:        info.UserEmail,
		IsActive:     info.IsActive,
		IsValid:      info.IsValid,
		TimeToExpiry: info.TimeToExpiry.String(),
		CreatedAt:    info.CreatedAt,
	})
}

// CurrentUser returns the signed-in user.
// GET /auth/user
func (h *SessionHandler) CurrentUser(c *gin.Context) {
	u := h.sessions.GetCurrentUser()
	if u == nil {
		handleAuthError(c, apperrors.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// SchedulerStats returns refresh scheduler diagnostics.
// GET /auth/session/refresh-stats
func (h *SessionHandler) SchedulerStats(c *gin.Context) {
	stats := h.scheduler.Stats()
	resp := dto.SchedulerStatsResponse{
		State:         string(stats.State),
		Threshold:     stats.Threshold.String(),
		CheckInterval: stats.CheckInterval.String(),
		LastError:     stats.LastError,
		Attempts:      stats.Attempts,
		Failures:      stats.Failures,
	}
	if !stats.LastRefresh.IsZero() {
		resp.LastRefresh = stats.LastRefresh.Format("2006-01-02T15:04:05Z07:00")
	}
	c.JSON(http.StatusOK, resp)
}

// CreateAnonymous starts a guest session.
// POST /auth/anonymous
func (h *SessionHandler) CreateAnonymous(c *gin.Context) {
	var req dto.AnonymousSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	anon, err := h.engine.CreateAnonymousSession(c.Request.Context(), req.DeviceID)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AnonymousSessionResponse{
		AnonymousID: anon.ID,
		SessionID:   anon.SessionID,
		ExpiresAt:   anon.ExpiresAt,
	})
}

// ConvertAnonymous upgrades a guest session to a full account.
// POST /auth/anonymous/convert
func (h *SessionHandler) ConvertAnonymous(c *gin.Context) {
	var req dto.ConvertAnonymousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	sess, err := h.engine.ConvertAnonymousSession(c.Request.Context(), req.AnonymousID,
		req.Email, req.Password, req.DisplayName,
		deviceFromRequest(c, req.DeviceName, req.Platform))
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(sess))
}

// TerminateAnonymous ends a guest session.
// DELETE /auth/anonymous/:anonymous_id
func (h *SessionHandler) TerminateAnonymous(c *gin.Context) {
	id := c.Param("anonymous_id")
	if err := h.engine.TerminateAnonymousSession(c.Request.Context(), id); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "anonymous session terminated"})
}
