package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: no session", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrUnknownSection, http.StatusBadRequest},
		{domain.ErrInvalidPhaseTransition, http.StatusBadRequest},
		{domain.ErrPhaseBlocked, http.StatusConflict},
		{domain.ErrVersionConflict, http.StatusConflict},
		{domain.ErrSaveInFlight, http.StatusConflict},
		{domain.ErrSessionClosed, http.StatusConflict},
		{domain.ErrStorage, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Write(c, domain.ErrStorage)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error": "storage failure", "recoverable": true}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Write(c, domain.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "resource not found"}`, w.Body.String())
}
