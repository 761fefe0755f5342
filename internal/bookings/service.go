package bookings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/notifications"
	"tourly/internal/pricing"
	"tourly/internal/refundpolicy"
	"tourly/internal/shared/apperr"
	"tourly/internal/shared/transaction"
	"tourly/internal/users"
	"tourly/pkg/logger"

	"github.com/google/uuid"
)

const (
	reasonPaymentCancelled = "payment cancelled"
	reasonHoldExpired      = "reservation hold expired"
	reasonCapacityLost     = "seats were taken before the payment was confirmed"
)

// PaymentRequest is what the gateway needs to open a checkout.
type PaymentRequest struct {
	OrderCode     string
	BookingCode   string
	Amount        float64
	Description   string
	CustomerEmail string
}

// PaymentGateway creates checkout URLs for new bookings.
type PaymentGateway interface {
	CreatePaymentURL(ctx context.Context, req PaymentRequest) (string, error)
}

// RevenueLedger tracks the operator's share of booking revenue.
type RevenueLedger interface {
	CreditHeld(ctx context.Context, guideID, bookingID uuid.UUID, amount float64) error
	ReverseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error
	ReleaseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error
}

type RefundCalculator interface {
	CalculateRefund(ctx context.Context, originalAmount float64, trigger refundpolicy.TriggerType, daysBeforeEvent int) (*refundpolicy.RefundCalculation, error)
}

// RefundRecorder stores a Pending refund for a booking cancelled outside the
// customer refund workflow. It must not change the booking's status and must
// be a no-op when the booking already has an open refund.
type RefundRecorder interface {
	RecordCancellationRefund(ctx context.Context, booking *Booking, calc *refundpolicy.RefundCalculation, reason string) error
}

// Service interface defines the booking lifecycle
type Service interface {
	CreateBooking(ctx context.Context, customer users.Actor, req CreateBookingRequest) (*CreateBookingResponse, error)
	ConfirmPayment(ctx context.Context, orderCode string) (*PaymentResult, error)
	CancelPayment(ctx context.Context, orderCode string) (*PaymentResult, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actor users.Actor, reason string) (*CancelResult, error)
	ConfirmBookingAdmin(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*PaymentResult, error)
	CancelSlot(ctx context.Context, slotID uuid.UUID, actor users.Actor, reason string) (int, error)

	ExpireStaleHolds(ctx context.Context, limit int) (int, error)
	CompleteDeparted(ctx context.Context, limit int) (int, error)

	GetBooking(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*Booking, error)
	GetBookingByCode(ctx context.Context, code string, actor users.Actor) (*Booking, error)
	ListMyBookings(ctx context.Context, customerID uuid.UUID, query BookingListQuery) (*BookingList, error)
	ListOperationBookings(ctx context.Context, actor users.Actor, operationID uuid.UUID, query BookingListQuery) (*BookingList, error)
	RefundPreview(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*refundpolicy.RefundCalculation, error)

	Lifecycle
}

// Dependencies are the collaborators of the booking service.
type Dependencies struct {
	Repo       Repository
	Capacity   capacity.Service
	Pricing    *pricing.Engine
	Refunds    RefundCalculator
	Recorder   RefundRecorder
	Gateway    PaymentGateway
	Revenue    RevenueLedger
	Dispatcher notifications.Dispatcher
	Tx         transaction.Transactor
}

type Options struct {
	HoldTTL         time.Duration
	CodePrefix      string
	CodeMaxAttempts int
	TxRetryAttempts int
	Location        *time.Location
	Now             func() time.Time
	// RandomDigits returns n random decimal digits.
	RandomDigits func(n int) (string, error)
}

type service struct {
	Dependencies
	holdTTL         time.Duration
	codePrefix      string
	codeMaxAttempts int
	txAttempts      int
	loc             *time.Location
	now             func() time.Time
	randomDigits    func(n int) (string, error)
	log             *logger.Logger
}

func NewService(deps Dependencies, opts Options) Service {
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = 30 * time.Minute
	}
	if opts.CodePrefix == "" {
		opts.CodePrefix = "TB"
	}
	if opts.CodeMaxAttempts <= 0 {
		opts.CodeMaxAttempts = 5
	}
	if opts.TxRetryAttempts <= 0 {
		opts.TxRetryAttempts = 3
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RandomDigits == nil {
		opts.RandomDigits = cryptoDigits
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notifications.NewLogDispatcher(nil)
	}
	return &service{
		Dependencies:    deps,
		holdTTL:         opts.HoldTTL,
		codePrefix:      opts.CodePrefix,
		codeMaxAttempts: opts.CodeMaxAttempts,
		txAttempts:      opts.TxRetryAttempts,
		loc:             opts.Location,
		now:             opts.Now,
		randomDigits:    opts.RandomDigits,
		log:             logger.GetDefault(),
	}
}

// outbox collects notifications that are sent only after the transaction commits.
type outbox []notifications.Notification

func (o *outbox) add(n notifications.Notification) {
	*o = append(*o, n)
}

// inTx runs fn in a transaction, retrying the whole unit when a booking row
// changed underneath it.
func (s *service) inTx(ctx context.Context, fn func(ctx context.Context, out *outbox) error) error {
	for attempt := 1; ; attempt++ {
		var out outbox
		err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return fn(ctx, &out)
		})
		if err == nil {
			for _, n := range out {
				s.Dispatcher.Dispatch(ctx, n)
			}
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		if attempt >= s.txAttempts {
			return apperr.Conflict(err)
		}
		s.log.WarnContext(ctx, "booking changed concurrently, retrying", slog.Int("attempt", attempt))
	}
}

func (s *service) CreateBooking(ctx context.Context, customer users.Actor, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if err := validateGuests(req); err != nil {
		return nil, err
	}

	var booking *Booking
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		now := s.now()

		op, err := s.Capacity.GetOperation(ctx, req.OperationID)
		if err != nil {
			return err
		}
		if !op.IsActive || !op.IsPublished {
			return apperr.InvalidState("tour operation is not open for booking")
		}

		res := capacity.Resource{OperationID: op.ID}
		var departure *time.Time
		if req.SlotID != nil {
			slot, err := s.Capacity.GetSlot(ctx, *req.SlotID)
			if err != nil {
				return err
			}
			if slot.OperationID != op.ID {
				return apperr.NotFound("tour slot")
			}
			day := pricing.OnCalendarDay(slot.DepartureDate, s.loc)
			if pricing.DaysBetween(now, day, s.loc) < 0 {
				return apperr.InvalidState("departure %s has already left", slot.DepartureDate.Format("2006-01-02"))
			}
			departure = &day
			res.SlotID = &slot.ID
		} else {
			hasSlots, err := s.Capacity.HasSlots(ctx, op.ID)
			if err != nil {
				return err
			}
			if hasSlots {
				return apperr.Validation("slot_id is required for tours with scheduled departures")
			}
		}

		if err := s.Capacity.CheckAndHold(ctx, res, req.NumberOfGuests); err != nil {
			return err
		}

		quote := s.Pricing.Quote(op.BasePrice, departure, op.ListingCreatedAt, now)
		guests := float64(req.NumberOfGuests)

		code, err := s.generateBookingCode(ctx, now)
		if err != nil {
			return err
		}
		orderCode, err := s.generateOrderCode(ctx, now)
		if err != nil {
			return err
		}

		reservedUntil := now.Add(s.holdTTL)
		booking = &Booking{
			ID:               uuid.New(),
			OperationID:      op.ID,
			SlotID:           res.SlotID,
			CustomerID:       customer.ID,
			GuideID:          op.GuideID,
			AdultCount:       req.AdultCount,
			ChildCount:       req.ChildCount,
			NumberOfGuests:   req.NumberOfGuests,
			OriginalPrice:    pricing.RoundMoney(quote.BasePrice * guests),
			DiscountPercent:  quote.DiscountPercent,
			TotalPrice:       pricing.RoundMoney(quote.FinalPrice * guests),
			PricingType:      quote.PricingType,
			BookingCode:      code,
			PaymentOrderCode: orderCode,
			Status:           StatusPending,
			Version:          1,
			ReservedUntil:    &reservedUntil,
			BookingDate:      now,
			ContactName:      req.ContactName,
			ContactPhone:     req.ContactPhone,
			ContactEmail:     req.ContactEmail,
			SpecialRequests:  req.SpecialRequests,
		}
		if departure != nil {
			stored := time.Date(departure.Year(), departure.Month(), departure.Day(), 0, 0, 0, 0, time.UTC)
			booking.DepartureDate = &stored
		}
		if err := s.Repo.Create(ctx, booking); err != nil {
			return err
		}

		url, err := s.Gateway.CreatePaymentURL(ctx, PaymentRequest{
			OrderCode:     orderCode,
			BookingCode:   code,
			Amount:        booking.TotalPrice,
			Description:   op.Title,
			CustomerEmail: req.ContactEmail,
		})
		if err != nil {
			return apperr.Upstream("payment gateway could not open a checkout", err)
		}
		if err := s.Repo.SetPaymentURL(ctx, booking.ID, url); err != nil {
			return err
		}
		booking.PaymentURL = url

		out.add(notifications.NewNotificationBuilder(notifications.NotificationTypeBookingCreated).
			WithRecipient(booking.CustomerID).
			WithBooking(booking.ID).
			With("booking_code", booking.BookingCode).
			With("total_price", booking.TotalPrice).
			With("reserved_until", reservedUntil).
			With("payment_url", url).
			Build())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingCreated(ctx, booking.BookingCode, booking.OperationID.String(), booking.CustomerID.String(), booking.NumberOfGuests)
	return &CreateBookingResponse{Booking: booking, PaymentURL: booking.PaymentURL}, nil
}

func validateGuests(req CreateBookingRequest) error {
	if req.AdultCount < 0 || req.ChildCount < 0 {
		return apperr.Validation("guest counts must not be negative")
	}
	if req.NumberOfGuests < 1 {
		return apperr.Validation("at least one guest is required")
	}
	if req.AdultCount+req.ChildCount != req.NumberOfGuests {
		return apperr.Validation("adult_count + child_count must equal number_of_guests (%d + %d != %d)",
			req.AdultCount, req.ChildCount, req.NumberOfGuests)
	}
	return nil
}

func (s *service) ConfirmPayment(ctx context.Context, orderCode string) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		b, err := s.loadByOrderCode(ctx, orderCode)
		if err != nil {
			return err
		}
		result, err = s.confirm(ctx, b, "payment", out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmBookingAdmin(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*PaymentResult, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can confirm bookings manually")
	}

	var result *PaymentResult
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}
		result, err = s.confirm(ctx, b, "admin", out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// confirm promotes a Pending booking. Payment callbacks never fail on lost
// seats or late arrival: the booking is cancelled and refunded instead, so
// the gateway gets its acknowledgement.
func (s *service) confirm(ctx context.Context, b *Booking, source string, out *outbox) (*PaymentResult, error) {
	fromGateway := source == "payment"

	switch b.Status {
	case StatusPending:
	case StatusConfirmed, StatusCancellationRequested, StatusCompleted, StatusNoShow, StatusRefunded:
		return &PaymentResult{Outcome: OutcomeAlreadyProcessed, Booking: b}, nil
	case StatusCancelledByCustomer, StatusCancelledByCompany:
		if b.ConfirmedAt != nil && fromGateway {
			// Paid before; this is a redelivery.
			return &PaymentResult{Outcome: OutcomeAlreadyProcessed, Booking: b}, nil
		}
		if !fromGateway {
			return nil, apperr.InvalidState("booking %s is %s", b.BookingCode, b.Status)
		}
		calc, err := s.recordAutoRefund(ctx, b, "payment received after the booking was cancelled")
		if err != nil {
			return nil, err
		}
		out.add(s.bookingNotification(notifications.NotificationTypePaymentLate, b).Build())
		return &PaymentResult{Outcome: OutcomeLatePayment, Booking: b, Refund: calc}, nil
	default:
		return nil, apperr.InvalidState("booking %s has unknown status %q", b.BookingCode, b.Status)
	}

	err := s.Capacity.Confirm(ctx, b.Resource(), b.NumberOfGuests)
	if err != nil {
		lost := apperr.IsKind(err, apperr.KindCapacityExceeded) || apperr.IsKind(err, apperr.KindInvalidState)
		if !lost || !fromGateway {
			return nil, err
		}
		if _, err := s.cancel(ctx, b, StatusCancelledByCompany, reasonCapacityLost, out); err != nil {
			return nil, err
		}
		calc, err := s.recordAutoRefund(ctx, b, reasonCapacityLost)
		if err != nil {
			return nil, err
		}
		return &PaymentResult{Outcome: OutcomeCapacityLost, Booking: b, Refund: calc}, nil
	}

	now := s.now()
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
	b.ReservedUntil = nil
	b.CapacityCommitted = true
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, err
	}
	if err := s.Revenue.CreditHeld(ctx, b.GuideID, b.ID, b.TotalPrice); err != nil {
		return nil, err
	}

	out.add(s.bookingNotification(notifications.NotificationTypeBookingConfirmed, b).Build())
	s.log.LogBookingConfirmed(ctx, b.BookingCode, source)
	return &PaymentResult{Outcome: OutcomeConfirmed, Booking: b}, nil
}

// recordAutoRefund records a full automatic refund for money the customer
// paid for a booking that cannot go ahead.
func (s *service) recordAutoRefund(ctx context.Context, b *Booking, reason string) (*refundpolicy.RefundCalculation, error) {
	calc, err := s.Refunds.CalculateRefund(ctx, b.TotalPrice, refundpolicy.TriggerAutoCancellation, s.DaysBeforeTour(b))
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordCancellationRefund(ctx, b, calc, reason); err != nil {
		return nil, err
	}
	return calc, nil
}

func (s *service) CancelPayment(ctx context.Context, orderCode string) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		b, err := s.loadByOrderCode(ctx, orderCode)
		if err != nil {
			return err
		}
		if b.Status != StatusPending {
			result = &PaymentResult{Outcome: OutcomeAlreadyProcessed, Booking: b}
			return nil
		}
		if _, err := s.cancel(ctx, b, StatusCancelledByCustomer, reasonPaymentCancelled, out); err != nil {
			return err
		}
		result = &PaymentResult{Outcome: OutcomeCancelled, Booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CancelBooking(ctx context.Context, bookingID uuid.UUID, actor users.Actor, reason string) (*CancelResult, error) {
	var result *CancelResult
	err := s.inTx(ctx, func(ctx context.Context, out *outbox) error {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return err
		}

		var next Status
		switch users.ResolveRelation(actor, b.CustomerID, b.GuideID) {
		case users.RelationOwner:
			next = StatusCancelledByCustomer
		case users.RelationCompany, users.RelationAdmin:
			next = StatusCancelledByCompany
		default:
			return apperr.PermissionDenied("not allowed to cancel this booking")
		}

		switch {
		case b.Status.IsCancelled():
			return apperr.InvalidState("booking %s is already cancelled", b.BookingCode)
		case b.Status.IsTerminal():
			return apperr.InvalidState("booking %s is already %s", b.BookingCode, b.Status)
		case b.Status == StatusCancellationRequested:
			return apperr.InvalidState("booking %s has a refund request in progress", b.BookingCode)
		}
		if reason == "" {
			reason = "cancelled by " + string(actor.Role)
		}

		result, err = s.cancel(ctx, b, next, reason, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// cancel is the single cancellation path shared by customers, companies,
// payment callbacks and the hold-expiry sweep. Committed seats are released
// exactly once; a Pending hold simply stops counting.
func (s *service) cancel(ctx context.Context, b *Booking, next Status, reason string, out *outbox) (*CancelResult, error) {
	prev := b.Status
	if !prev.CanTransitionTo(next) {
		return nil, apperr.InvalidState("booking %s cannot move from %s to %s", b.BookingCode, prev, next)
	}

	released := false
	if b.CapacityCommitted {
		if err := s.Capacity.Release(ctx, b.Resource(), b.NumberOfGuests); err != nil {
			return nil, err
		}
		b.CapacityCommitted = false
		released = true
	} else if prev == StatusPending {
		s.Capacity.InvalidateAvailability(ctx, b.Resource())
	}

	now := s.now()
	b.Status = next
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.ReservedUntil = nil
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, err
	}

	result := &CancelResult{Booking: b, CapacityReleased: released}
	if prev == StatusConfirmed {
		trigger := refundpolicy.TriggerCompanyCancellation
		if next == StatusCancelledByCustomer {
			trigger = refundpolicy.TriggerUserCancellation
		}
		calc, err := s.Refunds.CalculateRefund(ctx, b.TotalPrice, trigger, s.DaysBeforeTour(b))
		if err != nil {
			return nil, err
		}
		if calc.Eligible && calc.NetRefund > 0 {
			if err := s.Recorder.RecordCancellationRefund(ctx, b, calc, reason); err != nil {
				return nil, err
			}
		}
		if err := s.Revenue.ReverseHeld(ctx, b.GuideID, b.ID); err != nil {
			return nil, err
		}
		result.Refund = calc
	}

	out.add(s.bookingNotification(notifications.NotificationTypeBookingCancelled, b).
		With("reason", reason).
		Build())
	s.log.LogBookingCancelled(ctx, b.BookingCode, string(next), reason, released)
	return result, nil
}

// DaysBeforeTour counts calendar days until departure. Bookings without a
// departure date are treated as far in the future.
func (s *service) DaysBeforeTour(b *Booking) int {
	if b.DepartureDate == nil {
		return pricing.FarFutureDays
	}
	return pricing.DaysBetween(s.now(), pricing.OnCalendarDay(*b.DepartureDate, s.loc), s.loc)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("booking")
	}
	return b, err
}

func (s *service) loadByOrderCode(ctx context.Context, orderCode string) (*Booking, error) {
	b, err := s.Repo.GetByOrderCode(ctx, orderCode)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("booking")
	}
	return b, err
}

func (s *service) bookingNotification(notType notifications.NotificationType, b *Booking) *notifications.NotificationBuilder {
	return notifications.NewNotificationBuilder(notType).
		WithRecipient(b.CustomerID).
		WithBooking(b.ID).
		With("booking_code", b.BookingCode).
		With("status", string(b.Status))
}
