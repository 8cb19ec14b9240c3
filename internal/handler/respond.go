package handler

import (
	"errors"
	"net/http"

	"securechat/backend/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// writeError translates an application error into the HTTP status the API
// contract promises. Anything that is not an *apperr.Error is an unexpected
// internal failure: it is logged with context and surfaced as an opaque 500.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("unexpected internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(statusForCode(appErr.Code), gin.H{"error": appErr.Message})
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument, apperr.CodeFailedPrecondition:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists, apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
