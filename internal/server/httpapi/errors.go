package httpapi

import (
	"errors"
	"net/http"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/gin-gonic/gin"
)

// statusForgeryCheckFailed mirrors the wire contract SPA clients already
// implement: on 419 they re-run the anti-forgery handshake and retry once.
const statusForgeryCheckFailed = 419

func (s *Server) abortWithError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "error", err.Error(), "path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, gin.H{
			"message": "The given data was invalid.",
			"errors":  verr.Fields,
		}
	}

	switch {
	case errors.Is(err, common.ErrorUnauthenticated):
		return http.StatusUnauthorized, gin.H{"message": "Unauthenticated."}
	case errors.Is(err, common.ErrorForgeryCheckFailed):
		return statusForgeryCheckFailed, gin.H{"message": "CSRF token mismatch."}
	case errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusBadRequest, gin.H{"message": "Invalid credentials."}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, gin.H{"message": "Not found."}
	default:
		return http.StatusInternalServerError, gin.H{"message": "Internal server error."}
	}
}
