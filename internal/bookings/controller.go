package bookings

import (
	"net/http"

	"tourly/internal/shared/middleware"
	"tourly/internal/shared/utils/response"
	"tourly/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := c.service.CreateBooking(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Booking reserved, complete the payment to confirm it", result, nil)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	bookingID, ok := idParam(ctx, "Invalid booking ID")
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID, actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// GetBookingByCode handles GET /api/v1/bookings/code/:code
func (c *Controller) GetBookingByCode(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBookingByCode(ctx.Request.Context(), ctx.Param("code"), actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// GetMyBookings handles GET /api/v1/bookings/my?page=&limit=&status=
func (c *Controller) GetMyBookings(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}

	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := c.service.ListMyBookings(ctx.Request.Context(), actor.ID, query)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	bookingID, ok := idParam(ctx, "Invalid booking ID")
	if !ok {
		return
	}

	var req CancelBookingRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	result, err := c.service.CancelBooking(ctx.Request.Context(), bookingID, actor, req.Reason)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking cancelled successfully", result, nil)
}

// RefundPreview handles GET /api/v1/bookings/:id/refund-preview
func (c *Controller) RefundPreview(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	bookingID, ok := idParam(ctx, "Invalid booking ID")
	if !ok {
		return
	}

	calc, err := c.service.RefundPreview(ctx.Request.Context(), bookingID, actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund preview calculated", calc, nil)
}

// ConfirmBooking handles POST /api/v1/admin/bookings/:id/confirm
func (c *Controller) ConfirmBooking(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	bookingID, ok := idParam(ctx, "Invalid booking ID")
	if !ok {
		return
	}

	result, err := c.service.ConfirmBookingAdmin(ctx.Request.Context(), bookingID, actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking confirmation processed", result, nil)
}

// GetOperationBookings handles GET /api/v1/admin/operations/:id/bookings
func (c *Controller) GetOperationBookings(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	operationID, ok := idParam(ctx, "Invalid operation ID")
	if !ok {
		return
	}

	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := c.service.ListOperationBookings(ctx.Request.Context(), actor, operationID, query)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", list, nil)
}

// CancelSlot handles POST /api/v1/admin/slots/:id/cancel
func (c *Controller) CancelSlot(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	slotID, ok := idParam(ctx, "Invalid slot ID")
	if !ok {
		return
	}

	var req CancelSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	cancelled, err := c.service.CancelSlot(ctx.Request.Context(), slotID, actor, req.Reason)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Departure cancelled", gin.H{"cancelled_bookings": cancelled}, nil)
}

func actorOrAbort(ctx *gin.Context) (users.Actor, bool) {
	actor, err := middleware.ActorFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return users.Actor{}, false
	}
	return actor, true
}

func idParam(ctx *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, message, nil, nil)
		return uuid.Nil, false
	}
	return id, true
}
