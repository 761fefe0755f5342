package refunds

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

// RequestRefund handles POST /api/v1/bookings/:id/refunds
func (c *Controller) RequestRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	bookingID, ok := idParam(ctx, "Invalid booking ID")
	if !ok {
		return
	}

	var req CreateRefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	refund, err := c.service.RequestRefund(ctx.Request.Context(), actor, bookingID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Refund request submitted", refund, nil)
}

// GetMyRefunds handles GET /api/v1/refunds/my
func (c *Controller) GetMyRefunds(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}

	var query RefundListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := c.service.ListMyRefunds(ctx.Request.Context(), actor.ID, query)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refunds retrieved successfully", list, nil)
}

// GetRefund handles GET /api/v1/refunds/:id
func (c *Controller) GetRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	refund, err := c.service.GetRefund(ctx.Request.Context(), refundID, actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund retrieved successfully", refund, nil)
}

// CancelRefund handles POST /api/v1/refunds/:id/cancel
func (c *Controller) CancelRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	refund, err := c.service.CancelRefund(ctx.Request.Context(), actor, refundID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund request withdrawn", refund, nil)
}

// GetTimeline handles GET /api/v1/refunds/:id/timeline
func (c *Controller) GetTimeline(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	entries, err := c.service.Timeline(ctx.Request.Context(), refundID, actor)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund timeline retrieved", entries, nil)
}

// ListRefunds handles GET /api/v1/admin/refunds?status=
func (c *Controller) ListRefunds(ctx *gin.Context) {
	var query RefundListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := c.service.ListRefunds(ctx.Request.Context(), query)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refunds retrieved successfully", list, nil)
}

// ApproveRefund handles POST /api/v1/admin/refunds/:id/approve
func (c *Controller) ApproveRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	var req ApproveRefundRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	refund, err := c.service.ApproveRefund(ctx.Request.Context(), actor, refundID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund approved", refund, nil)
}

// RejectRefund handles POST /api/v1/admin/refunds/:id/reject
func (c *Controller) RejectRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	var req RejectRefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	refund, err := c.service.RejectRefund(ctx.Request.Context(), actor, refundID, req.Note)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund rejected", refund, nil)
}

// CompleteRefund handles POST /api/v1/admin/refunds/:id/complete
func (c *Controller) CompleteRefund(ctx *gin.Context) {
	actor, ok := actorOrAbort(ctx)
	if !ok {
		return
	}
	refundID, ok := idParam(ctx, "Invalid refund ID")
	if !ok {
		return
	}

	var req CompleteRefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	refund, err := c.service.CompleteRefund(ctx.Request.Context(), actor, refundID, req.TransactionReference)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund marked as paid", refund, nil)
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
