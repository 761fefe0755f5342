package payments

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/shared/apperr"
	"tourly/internal/shared/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// MockGateway hands out links to the built-in mock checkout, which calls the
// booking service back directly. Development only.
type MockGateway struct {
	baseURL string
}

func NewMockGateway(publicBaseURL, apiPrefix string) *MockGateway {
	return &MockGateway{baseURL: strings.TrimRight(publicBaseURL, "/") + apiPrefix}
}

func (g *MockGateway) CreatePaymentURL(_ context.Context, req bookings.PaymentRequest) (string, error) {
	return fmt.Sprintf("%s/payments/mock/%s", g.baseURL, url.PathEscape(req.OrderCode)), nil
}

// StripeGateway opens a Stripe Checkout session per booking. The order code
// travels as the session's client reference.
type StripeGateway struct {
	api        *client.API
	currency   string
	successURL string
	cancelURL  string
	sessionTTL time.Duration
}

func NewStripeGateway(cfg config.PaymentConfig, holdTTL time.Duration) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)
	return &StripeGateway{
		api:        api,
		currency:   strings.ToLower(cfg.Currency),
		successURL: cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		sessionTTL: holdTTL,
	}
}

func (g *StripeGateway) CreatePaymentURL(ctx context.Context, req bookings.PaymentRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderCode),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	// Stripe requires checkout sessions to live at least 30 minutes.
	if g.sessionTTL >= 30*time.Minute {
		params.ExpiresAt = stripe.Int64(time.Now().Add(g.sessionTTL).Unix())
	}
	params.AddMetadata(metadataOrderCode, req.OrderCode)
	params.AddMetadata("booking_code", req.BookingCode)
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", apperr.Upstream("failed to create checkout session", err)
	}
	return session.URL, nil
}

const metadataOrderCode = "order_code"

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
