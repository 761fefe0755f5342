package bookings

import (
	"context"
	"log/slog"

	"tourly/internal/notifications"
	"tourly/internal/shared/apperr"
	"tourly/internal/users"

	"github.com/google/uuid"
)

// Lifecycle is the part of the booking service the refund workflow drives.
// Each call joins the caller's transaction.
type Lifecycle interface {
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	DaysBeforeTour(b *Booking) int

	// MarkCancellationRequested moves a Confirmed booking aside while its
	// refund is reviewed. Seats stay committed.
	MarkCancellationRequested(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	// RevertCancellationRequest puts the booking back to Confirmed. It is a
	// no-op for bookings not in CancellationRequested.
	RevertCancellationRequest(ctx context.Context, bookingID uuid.UUID) error
	// ReleaseForRefund gives the seats back and reverses the operator's held
	// revenue once a refund is approved. It runs at most once per booking.
	ReleaseForRefund(ctx context.Context, bookingID uuid.UUID) error
	// MarkRefunded closes a CancellationRequested booking after payout.
	MarkRefunded(ctx context.Context, bookingID uuid.UUID) error
}

func (s *service) FindBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.load(ctx, bookingID)
}

func (s *service) MarkCancellationRequested(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	var booking *Booking
	err := s.inTx(ctx, func(ctx context.Context, _ *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, b, StatusCancellationRequested); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

func (s *service) RevertCancellationRequest(ctx context.Context, bookingID uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context, _ *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusCancellationRequested {
			return nil
		}
		return s.transition(ctx, b, StatusConfirmed)
	})
}

func (s *service) ReleaseForRefund(ctx context.Context, bookingID uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context, _ *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}
		return s.releaseCommitted(ctx, b)
	})
}

func (s *service) MarkRefunded(ctx context.Context, bookingID uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context, _ *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != StatusCancellationRequested {
			return nil
		}
		if err := s.releaseCommitted(ctx, b); err != nil {
			return err
		}
		return s.transition(ctx, b, StatusRefunded)
	})
}

func (s *service) releaseCommitted(ctx context.Context, b *Booking) error {
	if !b.CapacityCommitted {
		return nil
	}
	if err := s.Capacity.Release(ctx, b.Resource(), b.NumberOfGuests); err != nil {
		return err
	}
	b.CapacityCommitted = false
	if err := s.Repo.Update(ctx, b); err != nil {
		return err
	}
	s.log.LogBookingCancelled(ctx, b.BookingCode, string(b.Status), "refund approved", true)
	return s.Revenue.ReverseHeld(ctx, b.GuideID, b.ID)
}

func (s *service) transition(ctx context.Context, b *Booking, next Status) error {
	if !b.Status.CanTransitionTo(next) {
		return apperr.InvalidState("booking %s cannot move from %s to %s", b.BookingCode, b.Status, next)
	}
	b.Status = next
	if next == StatusCompleted {
		now := s.now()
		b.CompletedAt = &now
	}
	return s.Repo.Update(ctx, b)
}

// ExpireStaleHolds cancels unpaid bookings whose reservation lapsed. Each
// booking runs in its own transaction so one failure does not stop the sweep.
func (s *service) ExpireStaleHolds(ctx context.Context, limit int) (int, error) {
	stale, err := s.Repo.ListExpiredHolds(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		id := stale[i].ID
		// Set by the attempt that commits; inTx may rerun the closure.
		var cancelled bool
		err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
			cancelled = false
			b, err := s.load(ctx, id)
			if err != nil {
				return err
			}
			if !b.HoldExpired(s.now()) {
				return nil
			}
			if _, err := s.cancel(ctx, b, StatusCancelledByCustomer, reasonHoldExpired, out); err != nil {
				return err
			}
			cancelled = true
			return nil
		})
		if err != nil {
			s.log.ErrorContext(ctx, "failed to expire booking hold",
				slog.String("booking_id", id.String()), slog.String("error", err.Error()))
			continue
		}
		if cancelled {
			expired++
		}
	}
	return expired, nil
}

// CompleteDeparted closes departures whose date has passed: Confirmed
// bookings become Completed, their revenue is released, and the slot is
// marked Completed.
func (s *service) CompleteDeparted(ctx context.Context, limit int) (int, error) {
	slots, err := s.Capacity.ListDepartedSlots(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range slots {
		slotID := slots[i].ID
		var closed int
		err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
			closed = 0
			confirmed, err := s.Repo.ListBySlot(ctx, slotID, StatusConfirmed)
			if err != nil {
				return err
			}
			for j := range confirmed {
				b := &confirmed[j]
				if err := s.transition(ctx, b, StatusCompleted); err != nil {
					return err
				}
				if err := s.Revenue.ReleaseHeld(ctx, b.GuideID, b.ID); err != nil {
					return err
				}
				out.add(s.bookingNotification(notifications.NotificationTypeBookingCompleted, b).Build())
			}
			if err := s.Capacity.CompleteSlot(ctx, slotID); err != nil {
				return err
			}
			closed = len(confirmed)
			return nil
		})
		if err != nil {
			s.log.ErrorContext(ctx, "failed to complete departure",
				slog.String("slot_id", slotID.String()), slog.String("error", err.Error()))
			continue
		}
		completed += closed
	}
	return completed, nil
}

// CancelSlot cancels a departure on behalf of the operating company. Every
// booking still holding seats is cancelled by the company and refunded per
// the company policy. Bookings with a refund under review keep their request.
func (s *service) CancelSlot(ctx context.Context, slotID uuid.UUID, actor users.Actor, reason string) (int, error) {
	cancelled := 0
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		cancelled = 0
		slot, err := s.Capacity.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		op, err := s.Capacity.GetOperation(ctx, slot.OperationID)
		if err != nil {
			return err
		}
		if rel := users.ResolveRelation(actor, uuid.Nil, op.GuideID); rel != users.RelationAdmin && rel != users.RelationCompany {
			return apperr.PermissionDenied("not allowed to cancel this departure")
		}

		holding, err := s.Repo.ListBySlot(ctx, slotID, StatusPending, StatusConfirmed)
		if err != nil {
			return err
		}
		for i := range holding {
			if _, err := s.cancel(ctx, &holding[i], StatusCancelledByCompany, reason, out); err != nil {
				return err
			}
			out.add(s.bookingNotification(notifications.NotificationTypeDepartureCancelled, &holding[i]).
				With("departure_date", slot.DepartureDate.Format("2006-01-02")).
				Build())
			cancelled++
		}
		return s.Capacity.MarkSlotCancelled(ctx, slotID)
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}
