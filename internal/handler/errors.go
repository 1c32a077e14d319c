package handler

import (
	"errors"
	"net/http"

	"vomprater-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError maps service sentinel errors to HTTP statuses. Unknown
// errors become an opaque 500 so internals never leak into responses.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNoPasswordSet):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "story has no password set"})
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrTokenMalformed),
		errors.Is(err, models.ErrTokenInvalid):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, models.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, models.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, models.ErrAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "already exists"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "invalid state transition"})
	case errors.Is(err, models.ErrConflictingTransition):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "conflicting state transition"})
	default:
		logger.Error("Unhandled service error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
