package payments

import "github.com/gin-gonic/gin"

// SetupPaymentRoutes registers the gateway callbacks. They authenticate by
// signature, not JWT. The mock checkout is only mounted when enabled.
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, mockEnabled bool) {
	payments := rg.Group("/payments")
	{
		payments.POST("/webhook", controller.Webhook)              // POST /api/v1/payments/webhook
		payments.POST("/stripe/webhook", controller.StripeWebhook) // POST /api/v1/payments/stripe/webhook
		if mockEnabled {
			payments.GET("/mock/:orderCode", controller.MockCheckout) // GET /api/v1/payments/mock/:orderCode
		}
	}
}
