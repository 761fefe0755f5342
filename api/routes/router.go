// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/capacity"
	"tourly/internal/payments"
	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"
	"tourly/internal/shared/middleware"
	"tourly/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	db          *database.DB
	services    *Services
	rateLimiter *ratelimit.RateLimiter
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, services *Services, rateLimiter *ratelimit.RateLimiter) *Router {
	return &Router{
		config:      cfg,
		db:          db,
		services:    services,
		rateLimiter: rateLimiter,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := middleware.JWTAuth(r.config)
	api := engine.Group(r.config.GetAPIBasePath())
	{
		capacity.SetupCapacityRoutes(api, capacity.NewController(r.services.Capacity), auth)

		bookings.SetupBookingRoutes(api, bookings.NewController(r.services.Bookings), auth,
			ratelimit.ForType(r.rateLimiter, ratelimit.RateLimitTypeBookingCritical))

		refundpolicy.SetupRefundPolicyRoutes(api, refundpolicy.NewController(r.services.RefundPolicies), auth)
		refunds.SetupRefundRoutes(api, refunds.NewController(r.services.Refunds), auth)

		paymentController := payments.NewController(r.services.Bookings, r.services.Guard,
			r.config.Payment.WebhookSecret, r.config.Payment.StripeWebhookSecret)
		payments.SetupPaymentRoutes(api, paymentController, r.config.Payment.Gateway != "stripe")
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "tourly-booking",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "tourly-booking",
			"storage":   r.config.StorageDriver,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"jobs":        r.services.Jobs.GetJobStatus(),
			"timestamp":   time.Now(),
		})
	})
}
