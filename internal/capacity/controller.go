package capacity

import (
	"net/http"

	"tourly/internal/shared/middleware"
	"tourly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for tour operations and departures
type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateOperation handles POST /api/v1/admin/operations
func (c *Controller) CreateOperation(ctx *gin.Context) {
	actor, err := middleware.ActorFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var req CreateOperationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	op, err := c.service.CreateOperation(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Tour operation created successfully", op, nil)
}

// AddSlots handles POST /api/v1/admin/operations/:id/slots
func (c *Controller) AddSlots(ctx *gin.Context) {
	actor, err := middleware.ActorFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	operationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid operation ID", nil, nil)
		return
	}

	var req AddSlotsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	slots, err := c.service.AddSlots(ctx.Request.Context(), actor, operationID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Departures added successfully", slots, nil)
}

// DeactivateOperation handles PATCH /api/v1/admin/operations/:id/deactivate
func (c *Controller) DeactivateOperation(ctx *gin.Context) {
	actor, err := middleware.ActorFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	operationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid operation ID", nil, nil)
		return
	}

	if err := c.service.DeactivateOperation(ctx.Request.Context(), actor, operationID); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Tour operation deactivated", nil, nil)
}

// GetAvailability handles GET /api/v1/operations/:id/availability?slot_id=
func (c *Controller) GetAvailability(ctx *gin.Context) {
	operationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid operation ID", nil, nil)
		return
	}

	var slotID *uuid.UUID
	if raw := ctx.Query("slot_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid slot ID", nil, nil)
			return
		}
		slotID = &parsed
	}

	availability, err := c.service.Availability(ctx.Request.Context(), operationID, slotID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", availability, nil)
}

// ListSlots handles GET /api/v1/operations/:id/slots?upcoming=true
func (c *Controller) ListSlots(ctx *gin.Context) {
	operationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid operation ID", nil, nil)
		return
	}

	slots, err := c.service.ListSlots(ctx.Request.Context(), operationID, ctx.Query("upcoming") == "true")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Departures retrieved successfully", slots, nil)
}
