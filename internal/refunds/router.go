package refunds

import (
	"tourly/internal/shared/middleware"
	"tourly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupRefundRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rg.POST("/bookings/:id/refunds", auth, middleware.RequireRoles(users.RoleCustomer), controller.RequestRefund) // POST /api/v1/bookings/:id/refunds

	refunds := rg.Group("/refunds")
	refunds.Use(auth)
	{
		refunds.GET("/my", controller.GetMyRefunds)          // GET /api/v1/refunds/my
		refunds.GET("/:id", controller.GetRefund)            // GET /api/v1/refunds/:id
		refunds.POST("/:id/cancel", controller.CancelRefund) // POST /api/v1/refunds/:id/cancel
		refunds.GET("/:id/timeline", controller.GetTimeline) // GET /api/v1/refunds/:id/timeline
	}

	admin := rg.Group("/admin/refunds")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.GET("", controller.ListRefunds)                  // GET /api/v1/admin/refunds
		admin.POST("/:id/approve", controller.ApproveRefund)   // POST /api/v1/admin/refunds/:id/approve
		admin.POST("/:id/reject", controller.RejectRefund)     // POST /api/v1/admin/refunds/:id/reject
		admin.POST("/:id/complete", controller.CompleteRefund) // POST /api/v1/admin/refunds/:id/complete
	}
}
