package refunds

import (
	"context"
	"errors"
	"math"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/notifications"
	"tourly/internal/pricing"
	"tourly/internal/refundpolicy"
	"tourly/internal/shared/apperr"
	"tourly/internal/shared/transaction"
	"tourly/internal/users"
	"tourly/pkg/logger"

	"github.com/google/uuid"
)

// Service interface defines the customer refund request workflow.
type Service interface {
	RequestRefund(ctx context.Context, customer users.Actor, bookingID uuid.UUID, req CreateRefundRequest) (*TourBookingRefund, error)
	CancelRefund(ctx context.Context, customer users.Actor, refundID uuid.UUID) (*TourBookingRefund, error)
	ApproveRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, req ApproveRefundRequest) (*TourBookingRefund, error)
	RejectRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, note string) (*TourBookingRefund, error)
	CompleteRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, transactionRef string) (*TourBookingRefund, error)

	GetRefund(ctx context.Context, refundID uuid.UUID, actor users.Actor) (*TourBookingRefund, error)
	ListMyRefunds(ctx context.Context, customerID uuid.UUID, query RefundListQuery) (*RefundList, error)
	ListRefunds(ctx context.Context, query RefundListQuery) (*RefundList, error)
	Timeline(ctx context.Context, refundID uuid.UUID, actor users.Actor) ([]RefundTimelineEntry, error)
}

type service struct {
	repo       Repository
	bookings   bookings.Lifecycle
	calculator bookings.RefundCalculator
	dispatcher notifications.Dispatcher
	tx         transaction.Transactor
	now        func() time.Time
	log        *logger.Logger
}

func NewService(repo Repository, lifecycle bookings.Lifecycle, calculator bookings.RefundCalculator,
	dispatcher notifications.Dispatcher, tx transaction.Transactor, now func() time.Time) Service {
	if dispatcher == nil {
		dispatcher = notifications.NewLogDispatcher(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       repo,
		bookings:   lifecycle,
		calculator: calculator,
		dispatcher: dispatcher,
		tx:         tx,
		now:        now,
		log:        logger.GetDefault(),
	}
}

func (s *service) RequestRefund(ctx context.Context, customer users.Actor, bookingID uuid.UUID, req CreateRefundRequest) (*TourBookingRefund, error) {
	var refund *TourBookingRefund
	err := s.inTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.CustomerID != customer.ID {
			return apperr.PermissionDenied("only the customer who booked can request a refund")
		}
		if booking.Status != bookings.StatusConfirmed {
			return apperr.InvalidState("refunds can only be requested for confirmed bookings, booking is %s", booking.Status)
		}
		existing, err := s.repo.ListByBooking(ctx, booking.ID)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].Status != StatusCancelled {
				return apperr.InvalidState("booking %s already has a %s refund request", booking.BookingCode, existing[i].Status)
			}
		}

		days := s.bookings.DaysBeforeTour(booking)
		if days < 0 {
			return apperr.InvalidState("the tour has already departed")
		}
		calc, err := s.calculator.CalculateRefund(ctx, booking.TotalPrice, refundpolicy.TriggerUserCancellation, days)
		if err != nil {
			return err
		}
		if !calc.Eligible {
			return apperr.Validation("booking is not eligible for a refund: %s", calc.Reason)
		}

		refund = newRefund(booking, calc, req.Reason, s.now())
		refund.BankName = req.BankName
		refund.BankAccountNumber = req.BankAccountNumber
		refund.BankAccountHolder = req.BankAccountHolder
		if err := s.repo.Create(ctx, refund); err != nil {
			return err
		}
		if _, err := s.bookings.MarkCancellationRequested(ctx, booking.ID); err != nil {
			return err
		}
		return s.record(ctx, refund, "", customer.ID, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.NotificationTypeRefundRequested, refund)
	return refund, nil
}

func (s *service) CancelRefund(ctx context.Context, customer users.Actor, refundID uuid.UUID) (*TourBookingRefund, error) {
	return s.move(ctx, refundID, customer, StatusCancelled, notifications.NotificationTypeRefundCancelled, func(ctx context.Context, refund *TourBookingRefund) error {
		if refund.CustomerID != customer.ID {
			return apperr.PermissionDenied("only the customer who requested the refund can cancel it")
		}
		now := s.now()
		refund.CancelledAt = &now
		return s.bookings.RevertCancellationRequest(ctx, refund.BookingID)
	}, "cancelled by customer")
}

func (s *service) ApproveRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, req ApproveRefundRequest) (*TourBookingRefund, error) {
	return s.move(ctx, refundID, admin, StatusApproved, notifications.NotificationTypeRefundApproved, func(ctx context.Context, refund *TourBookingRefund) error {
		approved := pricing.RoundMoney(math.Max(0, refund.RequestedAmount-refund.ProcessingFee))
		if req.ApprovedAmount != nil {
			approved = pricing.RoundMoney(*req.ApprovedAmount)
		}
		if approved < 0 || approved > refund.RequestedAmount {
			return apperr.Validation("approved amount must be between 0 and %.2f", refund.RequestedAmount)
		}

		now := s.now()
		refund.ApprovedAmount = &approved
		refund.AdminNote = req.Note
		refund.ProcessedBy = &admin.ID
		refund.ProcessedAt = &now

		booking, err := s.bookings.FindBooking(ctx, refund.BookingID)
		if err != nil {
			return err
		}
		if booking.Status == bookings.StatusCancellationRequested {
			return s.bookings.ReleaseForRefund(ctx, booking.ID)
		}
		return nil
	}, req.Note)
}

func (s *service) RejectRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, note string) (*TourBookingRefund, error) {
	return s.move(ctx, refundID, admin, StatusRejected, notifications.NotificationTypeRefundRejected, func(ctx context.Context, refund *TourBookingRefund) error {
		now := s.now()
		refund.AdminNote = note
		refund.ProcessedBy = &admin.ID
		refund.ProcessedAt = &now
		return s.bookings.RevertCancellationRequest(ctx, refund.BookingID)
	}, note)
}

func (s *service) CompleteRefund(ctx context.Context, admin users.Actor, refundID uuid.UUID, transactionRef string) (*TourBookingRefund, error) {
	return s.move(ctx, refundID, admin, StatusCompleted, notifications.NotificationTypeRefundCompleted, func(ctx context.Context, refund *TourBookingRefund) error {
		now := s.now()
		refund.TransactionReference = transactionRef
		refund.CompletedAt = &now
		return s.bookings.MarkRefunded(ctx, refund.BookingID)
	}, transactionRef)
}

// move runs one workflow transition: load, check the state machine, apply
// the side effects, persist and write the timeline, all in one transaction.
func (s *service) move(ctx context.Context, refundID uuid.UUID, actor users.Actor, next Status,
	notType notifications.NotificationType, apply func(ctx context.Context, refund *TourBookingRefund) error, note string) (*TourBookingRefund, error) {
	var refund *TourBookingRefund
	err := s.inTx(ctx, func(ctx context.Context) error {
		r, err := s.load(ctx, refundID)
		if err != nil {
			return err
		}
		if !r.Status.CanTransitionTo(next) {
			return apperr.InvalidState("refund cannot move from %s to %s", r.Status, next)
		}
		from := r.Status
		if err := apply(ctx, r); err != nil {
			return err
		}
		r.Status = next
		if err := s.repo.Update(ctx, r); err != nil {
			return err
		}
		refund = r
		return s.record(ctx, r, from, actor.ID, note)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notType, refund)
	return refund, nil
}

func (s *service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.WithinTransaction(ctx, fn)
	if errors.Is(err, ErrVersionConflict) {
		return apperr.Conflict(err)
	}
	return err
}

func (s *service) record(ctx context.Context, refund *TourBookingRefund, from Status, actorID uuid.UUID, note string) error {
	id := actorID
	if err := s.repo.AddTimeline(ctx, &RefundTimelineEntry{
		ID:         uuid.New(),
		RefundID:   refund.ID,
		FromStatus: from,
		ToStatus:   refund.Status,
		ActorID:    &id,
		Note:       note,
		CreatedAt:  s.now(),
	}); err != nil {
		return err
	}
	s.log.LogRefundTransition(ctx, refund.ID.String(), string(from), string(refund.Status), actorID.String())
	return nil
}

func (s *service) notify(ctx context.Context, notType notifications.NotificationType, refund *TourBookingRefund) {
	n := notifications.NewNotificationBuilder(notType).
		WithRecipient(refund.CustomerID).
		WithBooking(refund.BookingID).
		WithRefund(refund.ID).
		With("booking_code", refund.BookingCode).
		With("status", string(refund.Status)).
		With("requested_amount", refund.RequestedAmount)
	if refund.ApprovedAmount != nil {
		n.With("approved_amount", *refund.ApprovedAmount)
	}
	s.dispatcher.Dispatch(ctx, n.Build())
}

func (s *service) load(ctx context.Context, refundID uuid.UUID) (*TourBookingRefund, error) {
	refund, err := s.repo.GetByID(ctx, refundID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("refund")
	}
	return refund, err
}

func (s *service) GetRefund(ctx context.Context, refundID uuid.UUID, actor users.Actor) (*TourBookingRefund, error) {
	refund, err := s.load(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && refund.CustomerID != actor.ID {
		return nil, apperr.NotFound("refund")
	}
	return refund, nil
}

func (s *service) ListMyRefunds(ctx context.Context, customerID uuid.UUID, query RefundListQuery) (*RefundList, error) {
	query.normalize()
	refunds, total, err := s.repo.ListByCustomer(ctx, customerID, query)
	if err != nil {
		return nil, err
	}
	return newRefundList(refunds, total, query), nil
}

func (s *service) ListRefunds(ctx context.Context, query RefundListQuery) (*RefundList, error) {
	if query.Status != "" && !query.Status.IsValid() {
		return nil, apperr.Validation("unknown refund status %q", query.Status)
	}
	query.normalize()
	refunds, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return newRefundList(refunds, total, query), nil
}

func (s *service) Timeline(ctx context.Context, refundID uuid.UUID, actor users.Actor) ([]RefundTimelineEntry, error) {
	if _, err := s.GetRefund(ctx, refundID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListTimeline(ctx, refundID)
}

func newRefundList(refunds []TourBookingRefund, total int64, query RefundListQuery) *RefundList {
	if refunds == nil {
		refunds = []TourBookingRefund{}
	}
	return &RefundList{
		Refunds:    refunds,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: bookings.CalculateTotalPages(total, query.Limit),
	}
}
