package bookings_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/capacity"
	"tourly/internal/notifications"
	"tourly/internal/payments"
	"tourly/internal/pricing"
	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"
	"tourly/internal/shared/transaction"
	"tourly/internal/storage/memory"
	"tourly/internal/users"
	"tourly/internal/wallet"
	"tourly/pkg/cache"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t        *testing.T
	store    *memory.Store
	clock    *fakeClock
	capacity capacity.Service
	wallet   wallet.Service
	notes    *notifications.Recorder
	svc      bookings.Service
	admin    users.Actor
	guide    users.Actor
}

func newHarness(t *testing.T, tweak ...func(*bookings.Options)) *harness {
	t.Helper()
	return newCachedHarness(t, nil, tweak...)
}

// newCachedHarness serves availability through availabilityCache; nil disables caching.
func newCachedHarness(t *testing.T, availabilityCache cache.Service, tweak ...func(*bookings.Options)) *harness {
	t.Helper()
	return buildHarness(t, availabilityCache, nil, tweak...)
}

// buildHarness wires the booking service; wrapTx, when set, decorates the
// transactor the booking service runs its units of work through.
func buildHarness(t *testing.T, availabilityCache cache.Service, wrapTx func(transaction.Transactor) transaction.Transactor, tweak ...func(*bookings.Options)) *harness {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	capacityService := capacity.WithClock(
		capacity.NewService(store.Capacity(), store.Bookings(), availabilityCache, capacity.Options{}), clock.Now)
	policies := refundpolicy.NewServiceWithClock(store.RefundPolicies(), store, clock.Now)
	if _, err := policies.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	walletService := wallet.NewService(store.Wallets(), store)
	notes := notifications.NewRecorder()

	var seq atomic.Int64
	opts := bookings.Options{
		HoldTTL:    30 * time.Minute,
		CodePrefix: "TB",
		Location:   time.UTC,
		Now:        clock.Now,
		RandomDigits: func(n int) (string, error) {
			return fmt.Sprintf("%0*d", n, seq.Add(1)%10000), nil
		},
	}
	for _, fn := range tweak {
		fn(&opts)
	}

	var tx transaction.Transactor = store
	if wrapTx != nil {
		tx = wrapTx(store)
	}

	svc := bookings.NewService(bookings.Dependencies{
		Repo:       store.Bookings(),
		Capacity:   capacityService,
		Pricing:    pricing.NewEngine(pricing.DefaultRule(), time.UTC),
		Refunds:    policies,
		Recorder:   refunds.NewRecorder(store.Refunds(), clock.Now),
		Gateway:    payments.NewMockGateway("http://localhost:8080", "/api/v1"),
		Revenue:    walletService,
		Dispatcher: notes,
		Tx:         tx,
	}, opts)

	return &harness{
		t:        t,
		store:    store,
		clock:    clock,
		capacity: capacityService,
		wallet:   walletService,
		notes:    notes,
		svc:      svc,
		admin:    users.Actor{ID: uuid.New(), Role: users.RoleAdmin},
		guide:    users.Actor{ID: uuid.New(), Role: users.RoleGuide},
	}
}

// operation creates a published operation priced at 100 per guest. Each
// entry in departures adds a slot that many days from now.
func (h *harness) operation(maxGuests int, departures ...int) (*capacity.TourOperation, []capacity.TourSlot) {
	h.t.Helper()
	ctx := context.Background()
	listed := h.clock.Now().AddDate(0, -6, 0)
	op, err := h.capacity.CreateOperation(ctx, h.guide, capacity.CreateOperationRequest{
		TourListingID:    uuid.New(),
		Title:            "Canal Walk",
		BasePrice:        100,
		MaxGuests:        maxGuests,
		Publish:          true,
		ListingCreatedAt: &listed,
	})
	if err != nil {
		h.t.Fatalf("CreateOperation() error = %v", err)
	}
	if len(departures) == 0 {
		return op, nil
	}

	dates := make([]string, 0, len(departures))
	for _, days := range departures {
		dates = append(dates, h.clock.Now().AddDate(0, 0, days).Format("2006-01-02"))
	}
	slots, err := h.capacity.AddSlots(ctx, h.guide, op.ID, capacity.AddSlotsRequest{Dates: dates})
	if err != nil {
		h.t.Fatalf("AddSlots() error = %v", err)
	}
	return op, slots
}

func (h *harness) book(customer users.Actor, opID uuid.UUID, slotID *uuid.UUID, guests int) (*bookings.Booking, error) {
	resp, err := h.svc.CreateBooking(context.Background(), customer, bookings.CreateBookingRequest{
		OperationID:    opID,
		SlotID:         slotID,
		AdultCount:     guests,
		NumberOfGuests: guests,
		ContactName:    "Ana Lima",
		ContactPhone:   "+351900000000",
		ContactEmail:   "ana@example.com",
	})
	if err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

func (h *harness) mustBook(customer users.Actor, opID uuid.UUID, slotID *uuid.UUID, guests int) *bookings.Booking {
	h.t.Helper()
	b, err := h.book(customer, opID, slotID, guests)
	if err != nil {
		h.t.Fatalf("CreateBooking() error = %v", err)
	}
	return b
}

func (h *harness) mustConfirm(b *bookings.Booking) {
	h.t.Helper()
	result, err := h.svc.ConfirmPayment(context.Background(), b.PaymentOrderCode)
	if err != nil {
		h.t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if result.Outcome != bookings.OutcomeConfirmed {
		h.t.Fatalf("ConfirmPayment() outcome = %s, want Confirmed", result.Outcome)
	}
}

func (h *harness) reload(id uuid.UUID) *bookings.Booking {
	h.t.Helper()
	b, err := h.store.Bookings().GetByID(context.Background(), id)
	if err != nil {
		h.t.Fatalf("GetByID() error = %v", err)
	}
	return b
}

func (h *harness) counter(res capacity.Resource) int {
	h.t.Helper()
	c, err := h.store.Capacity().LoadCounter(context.Background(), res)
	if err != nil {
		h.t.Fatalf("LoadCounter() error = %v", err)
	}
	return c.CurrentBookings
}

func (h *harness) refundsFor(bookingID uuid.UUID) []refunds.TourBookingRefund {
	h.t.Helper()
	list, err := h.store.Refunds().ListByBooking(context.Background(), bookingID)
	if err != nil {
		h.t.Fatalf("ListByBooking() error = %v", err)
	}
	return list
}

func newCustomer() users.Actor {
	return users.Actor{ID: uuid.New(), Role: users.RoleCustomer}
}
