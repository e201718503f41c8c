// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Status returns the HTTP status code for err
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnknownSection),
		errors.Is(err, domain.ErrInvalidPhaseTransition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPhaseBlocked),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrSaveInFlight),
		errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Write responds with the status for err and an error body. Storage failures
// are flagged recoverable so clients can offer a retry.
func Write(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusServiceUnavailable {
		body["recoverable"] = true
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

// BadRequest responds 400 for a malformed request body or query
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
