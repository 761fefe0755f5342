package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourly/internal/shared/apperr"

	"github.com/gin-gonic/gin"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperr.NotFound("booking"), http.StatusNotFound},
		{"capacity", fmt.Errorf("create: %w", apperr.CapacityExceeded()), http.StatusConflict},
		{"state", apperr.InvalidState("booking is %s", "Completed"), http.StatusUnprocessableEntity},
		{"permission", apperr.PermissionDenied("nope"), http.StatusForbidden},
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"upstream", apperr.Upstream("gateway", errors.New("x")), http.StatusBadGateway},
		{"untyped", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			RespondError(c, tt.err)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var body StandardApiResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != "error" || body.StatusCode != tt.want {
				t.Fatalf("unexpected envelope %+v", body)
			}
		})
	}
}
