package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// handleAuthError converts domain errors to HTTP responses using the error
// taxonomy.
func handleAuthError(c *gin.Context, err error) {
	kind := errors.KindOf(err)
	description := string(kind)
	if ae := errors.AsAuthError(err); ae != nil && ae.Message != "" {
		description = ae.Message
	}

	status := http.StatusInternalServerError
	switch kind {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindInvalidCredentials, errors.KindTokenExpired, errors.KindTokenInvalid:
		status = http.StatusUnauthorized
	case errors.KindNotSupported:
		status = http.StatusNotImplemented
	case errors.KindMaxSessions:
		status = http.StatusConflict
	case errors.KindRateLimited:
		status = http.StatusTooManyRequests
	case errors.KindProvider, errors.KindNetwork:
		status = http.StatusBadGateway
	case errors.KindStorage, errors.KindInternal:
		status = http.StatusInternalServerError
		description = "internal server error"
	}

	if errors.Is(err, errors.ErrUserAlreadyExists) {
		status = http.StatusConflict
		description = "user with this email already exists"
	}
	if errors.Is(err, errors.ErrSessionNotFound) {
		status = http.StatusNotFound
		description = "no active session"
	}

	c.JSON(status, gin.H{
		"error":             string(kind),
		"error_description": description,
	})
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": err.Error(),
	})
}
