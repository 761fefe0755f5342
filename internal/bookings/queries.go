package bookings

import (
	"context"
	"errors"

	"tourly/internal/refundpolicy"
	"tourly/internal/shared/apperr"
	"tourly/internal/users"

	"github.com/google/uuid"
)

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return authorizeRead(b, actor)
}

func (s *service) GetBookingByCode(ctx context.Context, code string, actor users.Actor) (*Booking, error) {
	b, err := s.Repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("booking")
		}
		return nil, err
	}
	return authorizeRead(b, actor)
}

func authorizeRead(b *Booking, actor users.Actor) (*Booking, error) {
	if users.ResolveRelation(actor, b.CustomerID, b.GuideID) == users.RelationNone {
		// Other people's bookings are reported as missing.
		return nil, apperr.NotFound("booking")
	}
	return b, nil
}

func (s *service) ListMyBookings(ctx context.Context, customerID uuid.UUID, query BookingListQuery) (*BookingList, error) {
	if query.Status != "" && !query.Status.IsValid() {
		return nil, apperr.Validation("unknown booking status %q", query.Status)
	}
	query.normalize()
	bookings, total, err := s.Repo.ListByCustomer(ctx, customerID, query)
	if err != nil {
		return nil, err
	}
	return newBookingList(bookings, total, query), nil
}

func (s *service) ListOperationBookings(ctx context.Context, actor users.Actor, operationID uuid.UUID, query BookingListQuery) (*BookingList, error) {
	op, err := s.Capacity.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if rel := users.ResolveRelation(actor, uuid.Nil, op.GuideID); rel != users.RelationAdmin && rel != users.RelationCompany {
		return nil, apperr.PermissionDenied("not allowed to view bookings of this operation")
	}
	if query.Status != "" && !query.Status.IsValid() {
		return nil, apperr.Validation("unknown booking status %q", query.Status)
	}
	query.normalize()
	bookings, total, err := s.Repo.ListByOperation(ctx, operationID, query)
	if err != nil {
		return nil, err
	}
	return newBookingList(bookings, total, query), nil
}

// RefundPreview shows the owner what cancelling now would refund.
func (s *service) RefundPreview(ctx context.Context, bookingID uuid.UUID, actor users.Actor) (*refundpolicy.RefundCalculation, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if users.ResolveRelation(actor, b.CustomerID, b.GuideID) != users.RelationOwner {
		return nil, apperr.PermissionDenied("only the customer can preview a refund")
	}
	if b.Status != StatusConfirmed {
		return nil, apperr.InvalidState("booking %s is %s", b.BookingCode, b.Status)
	}
	return s.Refunds.CalculateRefund(ctx, b.TotalPrice, refundpolicy.TriggerUserCancellation, s.DaysBeforeTour(b))
}

func newBookingList(bookings []Booking, total int64, query BookingListQuery) *BookingList {
	if bookings == nil {
		bookings = []Booking{}
	}
	return &BookingList{
		Bookings:   bookings,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}
}
