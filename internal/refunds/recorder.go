package refunds

import (
	"context"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/refundpolicy"
	"tourly/pkg/logger"

	"github.com/google/uuid"
)

// Recorder stores the Pending refund of a booking that was cancelled
// directly, without going through the customer request workflow.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

func NewRecorder(repo Repository, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{repo: repo, now: now}
}

func (r *Recorder) RecordCancellationRefund(ctx context.Context, booking *bookings.Booking, calc *refundpolicy.RefundCalculation, reason string) error {
	existing, err := r.repo.ListByBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].Status.IsOpen() {
			return nil
		}
	}

	refund := newRefund(booking, calc, reason, r.now())
	if err := r.repo.Create(ctx, refund); err != nil {
		return err
	}
	if err := r.repo.AddTimeline(ctx, &RefundTimelineEntry{
		RefundID:  refund.ID,
		ToStatus:  StatusPending,
		Note:      reason,
		CreatedAt: refund.RequestedAt,
	}); err != nil {
		return err
	}
	logger.GetDefault().LogRefundTransition(ctx, refund.ID.String(), "", string(StatusPending), "")
	return nil
}

func newRefund(booking *bookings.Booking, calc *refundpolicy.RefundCalculation, reason string, now time.Time) *TourBookingRefund {
	return &TourBookingRefund{
		ID:               uuid.New(),
		BookingID:        booking.ID,
		BookingCode:      booking.BookingCode,
		CustomerID:       booking.CustomerID,
		TriggerType:      calc.TriggerType,
		Reason:           reason,
		OriginalAmount:   calc.OriginalAmount,
		RequestedAmount:  calc.RefundBeforeFee,
		ProcessingFee:    calc.ProcessingFee,
		DaysBeforeTour:   calc.DaysBeforeEvent,
		RefundPercentage: calc.RefundPercentage,
		PolicyID:         calc.PolicyID,
		Status:           StatusPending,
		Version:          1,
		RequestedAt:      now,
	}
}
