package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourly/internal/shared/config"
	"tourly/internal/shared/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:                 true,
		WindowDuration:          time.Minute,
		DefaultRequests:         5,
		BookingRequests:         3,
		BookingCriticalRequests: 2,
		HealthRequests:          10,
		WhitelistedIPs:          []string{"10.0.0.1"},
	}
}

func TestRedisSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypeBookingCritical)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != 1-i {
			t.Fatalf("remaining = %d, want %d", res.Remaining, 1-i)
		}
	}

	res, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypeBookingCritical)
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if res.Allowed {
		t.Fatal("third critical request should be rejected")
	}

	if key := constants.BuildRateLimitKey("1.2.3.4", string(RateLimitTypeBookingCritical)); !mr.Exists(key) {
		t.Fatalf("window should be stored under %s, keys = %v", key, mr.Keys())
	}

	other, _ := limiter.IsAllowed(ctx, "5.6.7.8", RateLimitTypeBookingCritical)
	if !other.Allowed {
		t.Fatal("limits are per client")
	}
	whitelisted, _ := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
	if !whitelisted.Allowed {
		t.Fatal("whitelisted ip must not be limited")
	}
}

func TestLocalFallbackWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(nil, testConfig())
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 5; i++ {
		res, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypeBooking)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if res.Allowed {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed %d requests, want 3", allowed)
	}
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/api/v1/payments/webhook", RateLimitTypeWebhook},
		{"/api/v1/admin/refunds", RateLimitTypeAdmin},
		{"/api/v1/bookings/:id", RateLimitTypeBooking},
		{"/api/v1/refunds/my", RateLimitTypeBooking},
		{"/api/v1/operations/:id/availability", RateLimitTypePublic},
		{"/swagger/*any", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		if got := getRateLimitType(tt.path); got != tt.want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.HealthRequests = 1
	limiter := NewRateLimiter(nil, cfg)

	r := gin.New()
	r.Use(Middleware(limiter))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}
}
