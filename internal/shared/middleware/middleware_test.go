package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourly/internal/shared/config"
	"tourly/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newAuthEngine(cfg *config.Config, roles ...users.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(cfg)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, err := ActorFromContext(c)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, actor.ID.String()+"|"+actor.Role.String())
	})
	engine.GET("/me", handlers...)
	return engine
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	userID := uuid.New()
	token, err := IssueAccessToken(cfg.JWT.Secret, userID, "a@b.c", users.RoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthEngine(cfg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if want := userID.String() + "|CUSTOMER"; w.Body.String() != want {
		t.Fatalf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestJWTAuthRejections(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	wrongSecret, _ := IssueAccessToken("other", uuid.New(), "", users.RoleCustomer, time.Minute)
	expired, _ := IssueAccessToken(cfg.JWT.Secret, uuid.New(), "", users.RoleCustomer, -time.Minute)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Token abc"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthEngine(cfg).ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	token, _ := IssueAccessToken(cfg.JWT.Secret, uuid.New(), "", users.RoleCustomer, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthEngine(cfg, users.RoleAdmin).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
