package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"tourly/internal/shared/utils/response"
	"tourly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware limits every request by the type its route falls under.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	if rateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		limit(c, rateLimiter, getRateLimitType(c.FullPath()))
	}
}

// ForType limits the routes it is attached to under one fixed type, on top
// of whatever the global middleware already applied.
func ForType(rateLimiter *RateLimiter, limitType RateLimitType) gin.HandlerFunc {
	if rateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		limit(c, rateLimiter, limitType)
	}
}

func limit(c *gin.Context, rateLimiter *RateLimiter, limitType RateLimitType) {
	clientIP := getClientIP(c)

	result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
	if err != nil {
		// Fail open.
		logger.GetDefault().ErrorWithContext(c.Request.Context(), "rate limit check failed", err, nil)
		c.Next()
		return
	}

	// Set rate limit headers
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

	if !result.Allowed {
		logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
		response.RespondJSON(c, "error", http.StatusTooManyRequests,
			"Rate limit exceeded", nil, map[string]interface{}{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
		c.Abort()
		return
	}

	c.Next()
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/payments/"):
		return RateLimitTypeWebhook

	case strings.Contains(path, "/admin/"):
		return RateLimitTypeAdmin

	case strings.Contains(path, "/bookings"),
		strings.Contains(path, "/refunds"):
		return RateLimitTypeBooking

	case strings.Contains(path, "/operations/"),
		strings.Contains(path, "/refund-policies"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	// Check X-Forwarded-For header
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	// Check X-Real-IP header
	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return ip
}
