package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tourly/internal/shared/config"
	"tourly/internal/shared/utils/response"
	"tourly/internal/users"
	"tourly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextRequestID = "request_id"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		claims, err := parseAccessToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims["user_id"])
		c.Set(ContextUserEmail, claims["email"])
		c.Set(ContextUserRole, claims["role"])

		c.Next()
	}
}

func parseAccessToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("token rejected: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, fmt.Errorf("invalid token type")
	}
	if role, _ := claims["role"].(string); !users.IsValidRole(role) {
		return nil, fmt.Errorf("invalid role claim")
	}
	return claims, nil
}

// IssueAccessToken signs an access token in the shape JWTAuth accepts.
// Token issuance belongs to the identity service; this is used by the seeder and tests.
func IssueAccessToken(secret string, userID uuid.UUID, email string, role users.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"role":    string(role),
		"type":    "access",
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == string(required) {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(users.RoleAdmin)
}

// ActorFromContext builds the authenticated actor set by JWTAuth.
func ActorFromContext(c *gin.Context) (users.Actor, error) {
	rawID, exists := c.Get(ContextUserID)
	if !exists {
		return users.Actor{}, fmt.Errorf("user not authenticated")
	}
	idStr, _ := rawID.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return users.Actor{}, fmt.Errorf("invalid user id in token: %w", err)
	}
	rawRole, _ := c.Get(ContextUserRole)
	role, _ := rawRole.(string)
	return users.Actor{ID: id, Role: users.Role(role)}, nil
}

// RequestID tags every request with an id, reusing X-Request-ID when the caller sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLogger := l
		if requestID := c.GetString(ContextRequestID); requestID != "" {
			reqLogger = reqLogger.WithRequestID(requestID)
		}
		if userID := c.GetString(ContextUserID); userID != "" {
			reqLogger = reqLogger.WithUserID(userID)
		}
		if last := c.Errors.Last(); last != nil {
			reqLogger = reqLogger.WithError(last.Err)
		}
		reqLogger.LogHTTPRequest(c, time.Since(start))
	}
}
