package refunds_test

import (
	"context"
	"fmt"
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
	"tourly/internal/shared/apperr"
	"tourly/internal/storage/memory"
	"tourly/internal/users"
	"tourly/internal/wallet"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	store    *memory.Store
	capacity capacity.Service
	bookings bookings.Service
	refunds  refunds.Service
	notes    *notifications.Recorder
	admin    users.Actor
	guide    users.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return testNow }

	store := memory.New()
	capacityService := capacity.WithClock(
		capacity.NewService(store.Capacity(), store.Bookings(), nil, capacity.Options{}), now)
	policies := refundpolicy.NewServiceWithClock(store.RefundPolicies(), store, now)
	if _, err := policies.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	notes := notifications.NewRecorder()

	var seq atomic.Int64
	bookingService := bookings.NewService(bookings.Dependencies{
		Repo:       store.Bookings(),
		Capacity:   capacityService,
		Pricing:    pricing.NewEngine(pricing.DefaultRule(), time.UTC),
		Refunds:    policies,
		Recorder:   refunds.NewRecorder(store.Refunds(), now),
		Gateway:    payments.NewMockGateway("http://localhost:8080", "/api/v1"),
		Revenue:    wallet.NewService(store.Wallets(), store),
		Dispatcher: notes,
		Tx:         store,
	}, bookings.Options{
		Now: now,
		RandomDigits: func(n int) (string, error) {
			return fmt.Sprintf("%0*d", n, seq.Add(1)%10000), nil
		},
	})

	return &fixture{
		t:        t,
		store:    store,
		capacity: capacityService,
		bookings: bookingService,
		refunds:  refunds.NewService(store.Refunds(), bookingService, policies, notes, store, now),
		notes:    notes,
		admin:    users.Actor{ID: uuid.New(), Role: users.RoleAdmin},
		guide:    users.Actor{ID: uuid.New(), Role: users.RoleGuide},
	}
}

// confirmedBooking books two guests at 100 each on a departure daysAhead
// days out and confirms the payment.
func (f *fixture) confirmedBooking(customer users.Actor, daysAhead int) *bookings.Booking {
	f.t.Helper()
	b := f.pendingBooking(customer, daysAhead)
	if _, err := f.bookings.ConfirmPayment(context.Background(), b.PaymentOrderCode); err != nil {
		f.t.Fatalf("ConfirmPayment() error = %v", err)
	}
	return f.booking(b.ID)
}

func (f *fixture) pendingBooking(customer users.Actor, daysAhead int) *bookings.Booking {
	f.t.Helper()
	ctx := context.Background()
	listed := testNow.AddDate(-1, 0, 0)
	op, err := f.capacity.CreateOperation(ctx, f.guide, capacity.CreateOperationRequest{
		TourListingID:    uuid.New(),
		Title:            "River Cruise",
		BasePrice:        100,
		MaxGuests:        8,
		Publish:          true,
		ListingCreatedAt: &listed,
	})
	if err != nil {
		f.t.Fatalf("CreateOperation() error = %v", err)
	}
	slots, err := f.capacity.AddSlots(ctx, f.guide, op.ID, capacity.AddSlotsRequest{
		Dates: []string{testNow.AddDate(0, 0, daysAhead).Format("2006-01-02")},
	})
	if err != nil {
		f.t.Fatalf("AddSlots() error = %v", err)
	}
	resp, err := f.bookings.CreateBooking(ctx, customer, bookings.CreateBookingRequest{
		OperationID:    op.ID,
		SlotID:         &slots[0].ID,
		AdultCount:     2,
		NumberOfGuests: 2,
		ContactName:    "Rui Costa",
		ContactPhone:   "+351910000000",
	})
	if err != nil {
		f.t.Fatalf("CreateBooking() error = %v", err)
	}
	return resp.Booking
}

func (f *fixture) booking(id uuid.UUID) *bookings.Booking {
	f.t.Helper()
	b, err := f.store.Bookings().GetByID(context.Background(), id)
	if err != nil {
		f.t.Fatalf("GetByID() error = %v", err)
	}
	return b
}

func (f *fixture) seats(b *bookings.Booking) int {
	f.t.Helper()
	c, err := f.store.Capacity().LoadCounter(context.Background(), b.Resource())
	if err != nil {
		f.t.Fatalf("LoadCounter() error = %v", err)
	}
	return c.CurrentBookings
}

func (f *fixture) request(customer users.Actor, b *bookings.Booking) *refunds.TourBookingRefund {
	f.t.Helper()
	refund, err := f.refunds.RequestRefund(context.Background(), customer, b.ID, refunds.CreateRefundRequest{
		Reason:            "family emergency",
		BankName:          "Banco Exemplo",
		BankAccountNumber: "PT50000000000000000000000",
		BankAccountHolder: "Rui Costa",
	})
	if err != nil {
		f.t.Fatalf("RequestRefund() error = %v", err)
	}
	return refund
}

func customer() users.Actor {
	return users.Actor{ID: uuid.New(), Role: users.RoleCustomer}
}

func TestRefundApproveAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := customer()
	b := f.confirmedBooking(owner, 10)

	refund := f.request(owner, b)
	if refund.Status != refunds.StatusPending || refund.RequestedAmount != 200 || refund.RefundPercentage != 100 {
		t.Fatalf("requested refund = %+v", refund)
	}
	if got := f.booking(b.ID); got.Status != bookings.StatusCancellationRequested {
		t.Fatalf("booking status = %s", got.Status)
	}
	if f.seats(b) != 2 {
		t.Fatalf("seats must stay committed while the refund is reviewed")
	}

	if _, err := f.refunds.RequestRefund(ctx, owner, b.ID, refunds.CreateRefundRequest{}); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("second request error = %v", err)
	}

	approved, err := f.refunds.ApproveRefund(ctx, f.admin, refund.ID, refunds.ApproveRefundRequest{Note: "ok"})
	if err != nil {
		t.Fatalf("ApproveRefund() error = %v", err)
	}
	if approved.Status != refunds.StatusApproved || approved.ApprovedAmount == nil || *approved.ApprovedAmount != 200 {
		t.Fatalf("approved refund = %+v", approved)
	}
	if approved.ProcessedBy == nil || *approved.ProcessedBy != f.admin.ID {
		t.Fatalf("processed by = %v", approved.ProcessedBy)
	}
	if f.seats(b) != 0 {
		t.Fatalf("approval releases the seats, counter = %d", f.seats(b))
	}

	completed, err := f.refunds.CompleteRefund(ctx, f.admin, refund.ID, "TX-20260301-1")
	if err != nil {
		t.Fatalf("CompleteRefund() error = %v", err)
	}
	if completed.Status != refunds.StatusCompleted || completed.TransactionReference != "TX-20260301-1" || completed.CompletedAt == nil {
		t.Fatalf("completed refund = %+v", completed)
	}
	if got := f.booking(b.ID); got.Status != bookings.StatusRefunded {
		t.Fatalf("booking status = %s, want Refunded", got.Status)
	}

	timeline, err := f.refunds.Timeline(ctx, refund.ID, owner)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	want := []struct{ from, to refunds.Status }{
		{"", refunds.StatusPending},
		{refunds.StatusPending, refunds.StatusApproved},
		{refunds.StatusApproved, refunds.StatusCompleted},
	}
	if len(timeline) != len(want) {
		t.Fatalf("timeline has %d entries, want %d", len(timeline), len(want))
	}
	for i, w := range want {
		if timeline[i].FromStatus != w.from || timeline[i].ToStatus != w.to {
			t.Errorf("entry %d = %s -> %s, want %s -> %s", i, timeline[i].FromStatus, timeline[i].ToStatus, w.from, w.to)
		}
	}

	for _, notType := range []notifications.NotificationType{
		notifications.NotificationTypeRefundRequested,
		notifications.NotificationTypeRefundApproved,
		notifications.NotificationTypeRefundCompleted,
	} {
		if n := len(f.notes.OfType(notType)); n != 1 {
			t.Errorf("%s sent %d times", notType, n)
		}
	}
}

func TestRefundRejectRestoresBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := customer()
	b := f.confirmedBooking(owner, 10)
	refund := f.request(owner, b)

	if _, err := f.refunds.RejectRefund(ctx, f.admin, refund.ID, "outside policy"); err != nil {
		t.Fatalf("RejectRefund() error = %v", err)
	}
	if got := f.booking(b.ID); got.Status != bookings.StatusConfirmed {
		t.Fatalf("booking status = %s, want Confirmed", got.Status)
	}
	if f.seats(b) != 2 {
		t.Fatalf("rejection keeps the seats, counter = %d", f.seats(b))
	}
	if _, err := f.refunds.RequestRefund(ctx, owner, b.ID, refunds.CreateRefundRequest{}); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("request after rejection error = %v", err)
	}

	// A later company cancellation still pays out automatically.
	result, err := f.bookings.CancelBooking(ctx, b.ID, f.admin, "guide unavailable")
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if result.Refund == nil || !result.Refund.Eligible {
		t.Fatalf("company cancellation refund = %+v", result.Refund)
	}
	list, _ := f.store.Refunds().ListByBooking(ctx, b.ID)
	if len(list) != 2 {
		t.Fatalf("booking has %d refunds, want 2", len(list))
	}
	byStatus := map[refunds.Status]refundpolicy.TriggerType{}
	for _, r := range list {
		byStatus[r.Status] = r.TriggerType
	}
	if byStatus[refunds.StatusRejected] != refundpolicy.TriggerUserCancellation || byStatus[refunds.StatusPending] != refundpolicy.TriggerCompanyCancellation {
		t.Fatalf("refunds for booking = %+v", byStatus)
	}
}

func TestCancelRefundByOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := customer()
	b := f.confirmedBooking(owner, 10)
	refund := f.request(owner, b)

	if _, err := f.refunds.CancelRefund(ctx, customer(), refund.ID); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Fatalf("stranger cancel error = %v", err)
	}
	cancelled, err := f.refunds.CancelRefund(ctx, owner, refund.ID)
	if err != nil {
		t.Fatalf("CancelRefund() error = %v", err)
	}
	if cancelled.Status != refunds.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled refund = %+v", cancelled)
	}
	if got := f.booking(b.ID); got.Status != bookings.StatusConfirmed {
		t.Fatalf("booking status = %s", got.Status)
	}
	if n := len(f.notes.OfType(notifications.NotificationTypeRefundCancelled)); n != 1 {
		t.Fatalf("REFUND_CANCELLED sent %d times", n)
	}

	again := f.request(owner, b)
	if again.ID == refund.ID {
		t.Fatalf("a new request must create a new refund")
	}
}

func TestRequestRefundRejections(t *testing.T) {
	f := newFixture(t)
	owner := customer()
	confirmed := f.confirmedBooking(owner, 10)
	pending := f.pendingBooking(owner, 10)
	tooLate := f.confirmedBooking(owner, 1)

	tests := []struct {
		name    string
		actor   users.Actor
		booking uuid.UUID
		wantErr apperr.Kind
	}{
		{name: "not the owner", actor: customer(), booking: confirmed.ID, wantErr: apperr.KindPermissionDenied},
		{name: "unpaid booking", actor: owner, booking: pending.ID, wantErr: apperr.KindInvalidState},
		{name: "no policy covers the lead time", actor: owner, booking: tooLate.ID, wantErr: apperr.KindValidation},
		{name: "unknown booking", actor: owner, booking: uuid.New(), wantErr: apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.refunds.RequestRefund(context.Background(), tt.actor, tt.booking, refunds.CreateRefundRequest{Reason: "x"})
			if !apperr.IsKind(err, tt.wantErr) {
				t.Fatalf("RequestRefund() error = %v, want kind %s", err, tt.wantErr)
			}
		})
	}
	if got := f.booking(tooLate.ID); got.Status != bookings.StatusConfirmed {
		t.Fatalf("failed request changed the booking to %s", got.Status)
	}
}

func TestRefundTransitionsFollowStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := customer()
	refund := f.request(owner, f.confirmedBooking(owner, 5))

	if refund.RequestedAmount != 100 || refund.RefundPercentage != 50 {
		t.Fatalf("five-day refund = %+v", refund)
	}
	snapshot := refund.RecalculateFromSnapshot()
	if snapshot.RefundBeforeFee != refund.RequestedAmount || snapshot.NetRefund != 100 {
		t.Fatalf("snapshot recalculation = %+v", snapshot)
	}

	over := 150.0
	if _, err := f.refunds.ApproveRefund(ctx, f.admin, refund.ID, refunds.ApproveRefundRequest{ApprovedAmount: &over}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("approving more than requested error = %v", err)
	}
	if _, err := f.refunds.CompleteRefund(ctx, f.admin, refund.ID, "TX"); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("completing a pending refund error = %v", err)
	}

	partial := 80.0
	approved, err := f.refunds.ApproveRefund(ctx, f.admin, refund.ID, refunds.ApproveRefundRequest{ApprovedAmount: &partial})
	if err != nil {
		t.Fatalf("ApproveRefund() error = %v", err)
	}
	if *approved.ApprovedAmount != 80 {
		t.Fatalf("approved amount = %.2f", *approved.ApprovedAmount)
	}

	if _, err := f.refunds.RejectRefund(ctx, f.admin, refund.ID, "late"); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("rejecting an approved refund error = %v", err)
	}
	if _, err := f.refunds.CancelRefund(ctx, owner, refund.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("cancelling an approved refund error = %v", err)
	}
	if _, err := f.refunds.ApproveRefund(ctx, f.admin, uuid.New(), refunds.ApproveRefundRequest{}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown refund error = %v", err)
	}
}

func TestRefundReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := customer()
	refund := f.request(owner, f.confirmedBooking(owner, 10))
	f.request(owner, f.confirmedBooking(owner, 12))

	if _, err := f.refunds.GetRefund(ctx, refund.ID, customer()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("stranger read error = %v", err)
	}
	if _, err := f.refunds.GetRefund(ctx, refund.ID, f.admin); err != nil {
		t.Fatalf("admin read error = %v", err)
	}

	mine, err := f.refunds.ListMyRefunds(ctx, owner.ID, refunds.RefundListQuery{Limit: 1})
	if err != nil {
		t.Fatalf("ListMyRefunds() error = %v", err)
	}
	if mine.TotalCount != 2 || len(mine.Refunds) != 1 || mine.TotalPages != 2 || mine.Page != 1 {
		t.Fatalf("my refunds = %+v", mine)
	}

	pending, err := f.refunds.ListRefunds(ctx, refunds.RefundListQuery{Status: refunds.StatusPending})
	if err != nil || pending.TotalCount != 2 {
		t.Fatalf("ListRefunds(Pending) = %+v, %v", pending, err)
	}
	if _, err := f.refunds.ListRefunds(ctx, refunds.RefundListQuery{Status: "Lost"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown status filter error = %v", err)
	}
}
