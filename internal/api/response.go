package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"menufolio/internal/apperr"
	"menufolio/internal/store"
)

// Responses share one envelope: {"message": ...} for failures and plain
// acknowledgements, {"data": ..., "message": ...} for payloads.

func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func Data(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, gin.H{"data": data, "message": msg})
}

func BadRequest(c *gin.Context, msg string)   { Message(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Message(c, http.StatusUnauthorized, msg) }
func NotFound(c *gin.Context, msg string)     { Message(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)     { Message(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)     { Message(c, http.StatusInternalServerError, msg) }

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
}

// Fail is the boundary converter for store and classified errors. The
// wrapped cause is logged; clients only ever see the category message.
// notFoundMsg names the resource without revealing whether it exists or
// merely belongs to someone else.
func Fail(c *gin.Context, logger *slog.Logger, err error, notFoundMsg, internalMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		Message(c, statusForKind(apperr.NotFoundOrNotOwned), notFoundMsg)
	case errors.Is(err, store.ErrEmailTaken):
		Message(c, statusForKind(apperr.Conflict), "Email already taken")
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			logger.Error("request failed", slog.Any("error", err))
			Message(c, statusForKind(appErr.Kind), appErr.Msg)
			return
		}
		logger.Error("unclassified failure", slog.Any("error", err))
		Message(c, statusForKind(apperr.PersistenceFailure), internalMsg)
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated, apperr.InvalidCredential:
		return http.StatusUnauthorized
	case apperr.ValidationFailed:
		return http.StatusBadRequest
	case apperr.NotFoundOrNotOwned:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.ValidationEngineError, apperr.PersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
