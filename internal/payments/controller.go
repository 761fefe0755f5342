package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"tourly/internal/bookings"
	"tourly/internal/shared/utils/response"
	"tourly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = 64 << 10

// Processor is the part of the booking service that settles payments.
type Processor interface {
	ConfirmPayment(ctx context.Context, orderCode string) (*bookings.PaymentResult, error)
	CancelPayment(ctx context.Context, orderCode string) (*bookings.PaymentResult, error)
}

// Outcome is what the generic webhook reports for an order.
type Outcome string

const (
	OutcomePaid      Outcome = "PAID"
	OutcomeCancelled Outcome = "CANCELLED"
)

type WebhookPayload struct {
	OrderCode string  `json:"order_code"`
	Outcome   Outcome `json:"outcome"`
}

type Controller struct {
	processor           Processor
	guard               *WebhookGuard
	webhookSecret       string
	stripeWebhookSecret string
	log                 *logger.Logger
}

func NewController(processor Processor, guard *WebhookGuard, webhookSecret, stripeWebhookSecret string) *Controller {
	return &Controller{
		processor:           processor,
		guard:               guard,
		webhookSecret:       webhookSecret,
		stripeWebhookSecret: stripeWebhookSecret,
		log:                 logger.GetDefault(),
	}
}

// Webhook handles POST /api/v1/payments/webhook
func (c *Controller) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unable to read request body", nil, nil)
		return
	}
	if err := VerifySignature(c.webhookSecret, body, ctx.GetHeader(SignatureHeader)); err != nil {
		c.log.LogAuthFailure(ctx.Request.Context(), "invalid payment webhook signature", ctx.ClientIP())
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Invalid signature", nil, nil)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.OrderCode == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid webhook payload", nil, nil)
		return
	}

	switch payload.Outcome {
	case OutcomePaid:
		c.settle(ctx, "generic", payload.OrderCode+":"+string(payload.Outcome), payload.OrderCode, true)
	case OutcomeCancelled:
		c.settle(ctx, "generic", payload.OrderCode+":"+string(payload.Outcome), payload.OrderCode, false)
	default:
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unknown payment outcome", nil, nil)
	}
}

// StripeWebhook handles POST /api/v1/payments/stripe/webhook
func (c *Controller) StripeWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unable to read request body", nil, nil)
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, ctx.GetHeader("Stripe-Signature"), c.stripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.log.LogAuthFailure(ctx.Request.Context(), "invalid stripe webhook signature", ctx.ClientIP())
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Invalid signature", nil, nil)
		return
	}

	var paid bool
	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		paid = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		paid = false
	default:
		response.RespondJSON(ctx, "success", http.StatusOK, "Event ignored", nil, nil)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid checkout session", nil, nil)
		return
	}
	// Delayed payment methods complete the session before the money arrives.
	if paid && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		response.RespondJSON(ctx, "success", http.StatusOK, "Awaiting payment", nil, nil)
		return
	}

	orderCode := session.ClientReferenceID
	if orderCode == "" {
		orderCode = session.Metadata[metadataOrderCode]
	}
	if orderCode == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Checkout session has no order code", nil, nil)
		return
	}
	c.settle(ctx, "stripe", event.ID, orderCode, paid)
}

// MockCheckout handles GET /api/v1/payments/mock/:orderCode?outcome=cancel
func (c *Controller) MockCheckout(ctx *gin.Context) {
	orderCode := ctx.Param("orderCode")
	paid := ctx.DefaultQuery("outcome", "success") != "cancel"
	c.settle(ctx, "mock", orderCode+":"+ctx.DefaultQuery("outcome", "success"), orderCode, paid)
}

// settle applies one payment outcome at most once per gateway event.
func (c *Controller) settle(ctx *gin.Context, source, eventID, orderCode string, paid bool) {
	reqCtx := ctx.Request.Context()

	claimed, err := c.guard.Claim(reqCtx, source, eventID)
	if err != nil {
		// The service is idempotent on its own; carry on without the guard.
		c.log.ErrorWithContext(reqCtx, "webhook guard unavailable", err, map[string]interface{}{"source": source})
		claimed = true
	}
	if !claimed {
		response.RespondJSON(ctx, "success", http.StatusOK, "Duplicate delivery ignored", gin.H{"outcome": bookings.OutcomeAlreadyProcessed}, nil)
		return
	}

	var result *bookings.PaymentResult
	if paid {
		result, err = c.processor.ConfirmPayment(reqCtx, orderCode)
	} else {
		result, err = c.processor.CancelPayment(reqCtx, orderCode)
	}
	if err != nil {
		if releaseErr := c.guard.Release(reqCtx, source, eventID); releaseErr != nil {
			c.log.ErrorWithContext(reqCtx, "failed to release webhook claim", releaseErr, nil)
		}
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment processed", result, nil)
}
