package payments

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/shared/apperr"
	"tourly/internal/shared/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76/webhook"
)

type fakeProcessor struct {
	confirmed []string
	cancelled []string
	err       error
}

func (f *fakeProcessor) ConfirmPayment(_ context.Context, orderCode string) (*bookings.PaymentResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirmed = append(f.confirmed, orderCode)
	return &bookings.PaymentResult{Outcome: bookings.OutcomeConfirmed}, nil
}

func (f *fakeProcessor) CancelPayment(_ context.Context, orderCode string) (*bookings.PaymentResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cancelled = append(f.cancelled, orderCode)
	return &bookings.PaymentResult{Outcome: bookings.OutcomeCancelled}, nil
}

func newGuard(t *testing.T) (*WebhookGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWebhookGuard(client, time.Hour), mr
}

func newEngine(processor Processor, guard *WebhookGuard) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ctrl := NewController(processor, guard, "shh", "whsec_test")
	SetupPaymentRoutes(r.Group("/api/v1"), ctrl, true)
	return r
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"order_code":"1","outcome":"PAID"}`)
	good := Sign("shh", body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		wantErr   bool
	}{
		{"valid", "shh", body, good, false},
		{"wrong secret", "other", body, good, true},
		{"tampered body", "shh", []byte(`{"order_code":"2","outcome":"PAID"}`), good, true},
		{"not hex", "shh", body, "zz", true},
		{"missing", "shh", body, "", true},
		{"no secret configured", "", body, good, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.body, tt.signature)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWebhookGuardClaimsOnce(t *testing.T) {
	guard, mr := newGuard(t)
	ctx := context.Background()

	first, err := guard.Claim(ctx, "stripe", "evt_1")
	if err != nil || !first {
		t.Fatalf("first claim = %v, %v; want true", first, err)
	}
	if key := constants.BuildWebhookClaimKey("stripe", "evt_1"); !mr.Exists(key) {
		t.Fatalf("claim should be stored under %s, keys = %v", key, mr.Keys())
	}
	second, err := guard.Claim(ctx, "stripe", "evt_1")
	if err != nil || second {
		t.Fatalf("second claim = %v, %v; want false", second, err)
	}
	if other, _ := guard.Claim(ctx, "generic", "evt_1"); !other {
		t.Fatal("claims must be scoped by source")
	}

	if err := guard.Release(ctx, "stripe", "evt_1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if again, _ := guard.Claim(ctx, "stripe", "evt_1"); !again {
		t.Fatal("released claim should be claimable again")
	}

	mr.FastForward(2 * time.Hour)
	if expired, _ := guard.Claim(ctx, "generic", "evt_1"); !expired {
		t.Fatal("claim should expire with its ttl")
	}
}

func TestWebhookGuardWithoutRedisLetsEverythingThrough(t *testing.T) {
	guard := NewWebhookGuard(nil, 0)
	for i := 0; i < 2; i++ {
		ok, err := guard.Claim(context.Background(), "generic", "x")
		if err != nil || !ok {
			t.Fatalf("claim %d = %v, %v", i, ok, err)
		}
	}
}

func TestGenericWebhook(t *testing.T) {
	guard, _ := newGuard(t)
	processor := &fakeProcessor{}
	engine := newEngine(processor, guard)

	send := func(body, signature string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(body))
		req.Header.Set(SignatureHeader, signature)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	paid := `{"order_code":"1700000000001234","outcome":"PAID"}`
	if code := send(paid, "deadbeef"); code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d", code)
	}
	if code := send(paid, Sign("shh", []byte(paid))); code != http.StatusOK {
		t.Fatalf("paid status = %d", code)
	}
	if code := send(paid, Sign("shh", []byte(paid))); code != http.StatusOK {
		t.Fatalf("duplicate status = %d", code)
	}
	if len(processor.confirmed) != 1 {
		t.Fatalf("confirmed %d times, want 1", len(processor.confirmed))
	}

	cancelled := `{"order_code":"1700000000005678","outcome":"CANCELLED"}`
	if code := send(cancelled, Sign("shh", []byte(cancelled))); code != http.StatusOK {
		t.Fatalf("cancel status = %d", code)
	}
	if len(processor.cancelled) != 1 || processor.cancelled[0] != "1700000000005678" {
		t.Fatalf("cancelled = %v", processor.cancelled)
	}

	unknown := `{"order_code":"1","outcome":"MAYBE"}`
	if code := send(unknown, Sign("shh", []byte(unknown))); code != http.StatusBadRequest {
		t.Fatalf("unknown outcome status = %d", code)
	}
}

func TestWebhookFailureReleasesClaim(t *testing.T) {
	guard, _ := newGuard(t)
	processor := &fakeProcessor{err: apperr.NotFound("booking")}
	engine := newEngine(processor, guard)

	body := `{"order_code":"42","outcome":"PAID"}`
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(body))
		req.Header.Set(SignatureHeader, Sign("shh", []byte(body)))
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	processor.err = nil
	if code := send(); code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", code)
	}
	if len(processor.confirmed) != 1 {
		t.Fatalf("retry was not processed: %v", processor.confirmed)
	}
}

func TestStripeWebhook(t *testing.T) {
	processor := &fakeProcessor{}
	engine := newEngine(processor, NewWebhookGuard(nil, 0))

	tests := []struct {
		name      string
		payload   string
		confirmed int
		cancelled int
	}{
		{
			name:      "completed and paid",
			payload:   `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"111","payment_status":"paid"}}}`,
			confirmed: 1,
		},
		{
			name:      "completed but unpaid",
			payload:   `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","client_reference_id":"222","payment_status":"unpaid"}}}`,
			confirmed: 1,
		},
		{
			name:      "expired",
			payload:   `{"id":"evt_3","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_3","object":"checkout.session","metadata":{"order_code":"333"}}}}`,
			confirmed: 1,
			cancelled: 1,
		},
		{
			name:      "unrelated event",
			payload:   `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			confirmed: 1,
			cancelled: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
				Payload: []byte(tt.payload),
				Secret:  "whsec_test",
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/stripe/webhook", bytes.NewReader(signed.Payload))
			req.Header.Set("Stripe-Signature", signed.Header)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if len(processor.confirmed) != tt.confirmed || len(processor.cancelled) != tt.cancelled {
				t.Fatalf("confirmed=%v cancelled=%v", processor.confirmed, processor.cancelled)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/stripe/webhook", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad stripe signature status = %d", rec.Code)
	}
}

func TestMockGatewayURL(t *testing.T) {
	g := NewMockGateway("http://localhost:8080/", "/api/v1")
	url, err := g.CreatePaymentURL(context.Background(), bookings.PaymentRequest{OrderCode: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if url != "http://localhost:8080/api/v1/payments/mock/123" {
		t.Fatalf("url = %q", url)
	}
}

func TestMockCheckoutConfirmsAndCancels(t *testing.T) {
	processor := &fakeProcessor{}
	engine := newEngine(processor, NewWebhookGuard(nil, 0))

	for _, target := range []string{"/api/v1/payments/mock/9", "/api/v1/payments/mock/10?outcome=cancel"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, rec.Code)
		}
	}
	if len(processor.confirmed) != 1 || len(processor.cancelled) != 1 {
		t.Fatalf("confirmed=%v cancelled=%v", processor.confirmed, processor.cancelled)
	}
}
