package refundpolicy

import (
	"net/http"

	"tourly/internal/shared/middleware"
	"tourly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for refund policies
type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreatePolicy handles POST /api/v1/admin/refund-policies
func (c *Controller) CreatePolicy(ctx *gin.Context) {
	actor, err := middleware.ActorFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var req PolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	policy, err := c.service.CreatePolicy(ctx.Request.Context(), actor.ID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Refund policy created successfully", policy, nil)
}

// UpdatePolicy handles PUT /api/v1/admin/refund-policies/:id
func (c *Controller) UpdatePolicy(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid policy ID", nil, nil)
		return
	}

	var req PolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	policy, err := c.service.UpdatePolicy(ctx.Request.Context(), id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund policy updated successfully", policy, nil)
}

// DeletePolicy handles DELETE /api/v1/admin/refund-policies/:id
func (c *Controller) DeletePolicy(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid policy ID", nil, nil)
		return
	}

	if err := c.service.DeletePolicy(ctx.Request.Context(), id); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund policy deleted successfully", nil, nil)
}

// GetPolicy handles GET /api/v1/admin/refund-policies/:id
func (c *Controller) GetPolicy(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid policy ID", nil, nil)
		return
	}

	policy, err := c.service.GetPolicy(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund policy retrieved successfully", policy, nil)
}

// ListPolicies handles GET /api/v1/admin/refund-policies
func (c *Controller) ListPolicies(ctx *gin.Context) {
	filter := ListFilter{
		TriggerType:    TriggerType(ctx.Query("trigger_type")),
		ActiveOnly:     ctx.Query("active") == "true",
		IncludeDeleted: ctx.Query("include_deleted") == "true",
	}
	if filter.TriggerType != "" && !filter.TriggerType.IsValid() {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid trigger type", nil, nil)
		return
	}

	policies, err := c.service.ListPolicies(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund policies retrieved successfully", policies, nil)
}

// Calculate handles GET /api/v1/refund-policies/calculate
func (c *Controller) Calculate(ctx *gin.Context) {
	var query CalculateQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if query.TriggerType == "" {
		query.TriggerType = TriggerUserCancellation
	}

	calc, err := c.service.CalculateRefund(ctx.Request.Context(), query.Amount, query.TriggerType, query.Days)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund calculated", calc, nil)
}
