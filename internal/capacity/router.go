package capacity

import (
	"tourly/internal/shared/middleware"
	"tourly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupCapacityRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	operations := rg.Group("/operations")
	{
		operations.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/operations/:id/availability
		operations.GET("/:id/slots", controller.ListSlots)              // GET /api/v1/operations/:id/slots
	}

	admin := rg.Group("/admin/operations")
	admin.Use(auth, middleware.RequireRoles(users.RoleGuide, users.RoleAdmin))
	{
		admin.POST("", controller.CreateOperation)                     // POST /api/v1/admin/operations
		admin.POST("/:id/slots", controller.AddSlots)                  // POST /api/v1/admin/operations/:id/slots
		admin.PATCH("/:id/deactivate", controller.DeactivateOperation) // PATCH /api/v1/admin/operations/:id/deactivate
	}
}
