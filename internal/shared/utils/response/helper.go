package response

import (
	"errors"
	"net/http"

	"tourly/internal/shared/apperr"
	"tourly/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a typed service error onto the response envelope.
// Untyped errors are logged and reported as 500 without leaking details.
func RespondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.GetDefault().LogHTTPError(c, err, http.StatusInternalServerError)
		RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}

	code := StatusCode(appErr.Kind)
	RespondJSON(c, "error", code, appErr.Message, nil, gin.H{"kind": appErr.Kind})
}

// StatusCode returns the HTTP status for an error kind.
func StatusCode(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindCapacityExceeded, apperr.KindConcurrencyConflict:
		return http.StatusConflict
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
