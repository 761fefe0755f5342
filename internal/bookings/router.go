package bookings

import (
	"tourly/internal/shared/middleware"
	"tourly/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes. critical is the
// stricter rate limit applied to booking creation and cancellation.
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth, critical gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("", critical, middleware.RequireRoles(users.RoleCustomer, users.RoleAdmin), controller.CreateBooking) // POST /api/v1/bookings
		bookings.GET("/my", controller.GetMyBookings)                                                                       // GET /api/v1/bookings/my
		bookings.GET("/code/:code", controller.GetBookingByCode)                                                            // GET /api/v1/bookings/code/:code
		bookings.GET("/:id", controller.GetBooking)                                                                         // GET /api/v1/bookings/:id
		bookings.POST("/:id/cancel", critical, controller.CancelBooking)                                                    // POST /api/v1/bookings/:id/cancel
		bookings.GET("/:id/refund-preview", controller.RefundPreview)                                                       // GET /api/v1/bookings/:id/refund-preview
	}

	operators := rg.Group("/admin")
	operators.Use(auth, middleware.RequireRoles(users.RoleGuide, users.RoleAdmin))
	{
		operators.GET("/operations/:id/bookings", controller.GetOperationBookings) // GET /api/v1/admin/operations/:id/bookings
		operators.POST("/slots/:id/cancel", controller.CancelSlot)                 // POST /api/v1/admin/slots/:id/cancel
	}

	admin := rg.Group("/admin/bookings")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/:id/confirm", controller.ConfirmBooking) // POST /api/v1/admin/bookings/:id/confirm
	}
}
