package refundpolicy

import (
	"tourly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRefundPolicyRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	policies := rg.Group("/refund-policies")
	policies.Use(auth)
	{
		policies.GET("/calculate", controller.Calculate) // GET /api/v1/refund-policies/calculate?amount=&days=&trigger_type=
	}

	admin := rg.Group("/admin/refund-policies")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("", controller.CreatePolicy)       // POST /api/v1/admin/refund-policies
		admin.GET("", controller.ListPolicies)        // GET /api/v1/admin/refund-policies
		admin.GET("/:id", controller.GetPolicy)       // GET /api/v1/admin/refund-policies/:id
		admin.PUT("/:id", controller.UpdatePolicy)    // PUT /api/v1/admin/refund-policies/:id
		admin.DELETE("/:id", controller.DeletePolicy) // DELETE /api/v1/admin/refund-policies/:id
	}
}
