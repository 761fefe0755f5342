package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"tourly/internal/bookings"
	"tourly/internal/capacity"

	"github.com/google/uuid"
)

type bookingRepo struct {
	s *Store
}

func (r *bookingRepo) Create(ctx context.Context, booking *bookings.Booking) error {
	return r.s.do(ctx, func() error {
		for _, existing := range r.s.bookings {
			if existing.BookingCode == booking.BookingCode {
				return fmt.Errorf("failed to create booking: duplicate booking code %s", booking.BookingCode)
			}
			if existing.PaymentOrderCode == booking.PaymentOrderCode {
				return fmt.Errorf("failed to create booking: duplicate order code %s", booking.PaymentOrderCode)
			}
		}
		if booking.ID == uuid.Nil {
			booking.ID = uuid.New()
		}
		if booking.Version == 0 {
			booking.Version = 1
		}
		now := time.Now()
		booking.CreatedAt, booking.UpdatedAt = now, now
		r.s.bookings[booking.ID] = *booking
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	return r.first(ctx, func(b *bookings.Booking) bool { return b.ID == id })
}

func (r *bookingRepo) GetByCode(ctx context.Context, code string) (*bookings.Booking, error) {
	return r.first(ctx, func(b *bookings.Booking) bool { return b.BookingCode == code })
}

func (r *bookingRepo) GetByOrderCode(ctx context.Context, orderCode string) (*bookings.Booking, error) {
	return r.first(ctx, func(b *bookings.Booking) bool { return b.PaymentOrderCode == orderCode })
}

func (r *bookingRepo) first(ctx context.Context, match func(b *bookings.Booking) bool) (*bookings.Booking, error) {
	var found *bookings.Booking
	err := r.s.do(ctx, func() error {
		for _, b := range r.s.bookings {
			if match(&b) {
				found = &b
				return nil
			}
		}
		return bookings.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *bookingRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	if errors.Is(err, bookings.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *bookingRepo) SetPaymentURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.s.do(ctx, func() error {
		b, ok := r.s.bookings[id]
		if !ok {
			return bookings.ErrNotFound
		}
		b.PaymentURL = url
		r.s.bookings[id] = b
		return nil
	})
}

func (r *bookingRepo) Update(ctx context.Context, booking *bookings.Booking) error {
	return r.s.do(ctx, func() error {
		stored, ok := r.s.bookings[booking.ID]
		if !ok || stored.Version != booking.Version {
			return bookings.ErrVersionConflict
		}
		now := time.Now()
		stored.Status = booking.Status
		stored.CapacityCommitted = booking.CapacityCommitted
		stored.ReservedUntil = booking.ReservedUntil
		stored.ConfirmedAt = booking.ConfirmedAt
		stored.CancelledAt = booking.CancelledAt
		stored.CompletedAt = booking.CompletedAt
		stored.CancellationReason = booking.CancellationReason
		stored.Version++
		stored.UpdatedAt = now
		r.s.bookings[booking.ID] = stored

		booking.Version = stored.Version
		booking.UpdatedAt = now
		return nil
	})
}

func (r *bookingRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, query bookings.BookingListQuery) ([]bookings.Booking, int64, error) {
	return r.page(ctx, query, func(b *bookings.Booking) bool { return b.CustomerID == customerID })
}

func (r *bookingRepo) ListByOperation(ctx context.Context, operationID uuid.UUID, query bookings.BookingListQuery) ([]bookings.Booking, int64, error) {
	return r.page(ctx, query, func(b *bookings.Booking) bool { return b.OperationID == operationID })
}

func (r *bookingRepo) page(ctx context.Context, query bookings.BookingListQuery, match func(b *bookings.Booking) bool) ([]bookings.Booking, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	matched := r.filter(ctx, func(b *bookings.Booking) bool {
		return match(b) && (query.Status == "" || b.Status == query.Status)
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, query.Page, query.Limit), int64(len(matched)), nil
}

func (r *bookingRepo) filter(ctx context.Context, match func(b *bookings.Booking) bool) []bookings.Booking {
	var out []bookings.Booking
	_ = r.s.do(ctx, func() error {
		for _, b := range r.s.bookings {
			if match(&b) {
				out = append(out, b)
			}
		}
		return nil
	})
	return out
}

func (r *bookingRepo) ListBySlot(ctx context.Context, slotID uuid.UUID, statuses ...bookings.Status) ([]bookings.Booking, error) {
	out := r.filter(ctx, func(b *bookings.Booking) bool {
		return b.SlotID != nil && *b.SlotID == slotID && (len(statuses) == 0 || slices.Contains(statuses, b.Status))
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *bookingRepo) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]bookings.Booking, error) {
	out := r.filter(ctx, func(b *bookings.Booking) bool {
		return b.Status == bookings.StatusPending && b.ReservedUntil != nil && !b.ReservedUntil.After(now)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReservedUntil.Before(*out[j].ReservedUntil) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *bookingRepo) ActiveHolds(ctx context.Context, res capacity.Resource, at time.Time) (int, error) {
	held := 0
	for _, b := range r.filter(ctx, func(b *bookings.Booking) bool {
		if b.Status != bookings.StatusPending || b.CapacityCommitted || b.ReservedUntil == nil || !b.ReservedUntil.After(at) {
			return false
		}
		if res.SlotID != nil {
			return b.SlotID != nil && *b.SlotID == *res.SlotID
		}
		return b.OperationID == res.OperationID && b.SlotID == nil
	}) {
		held += b.NumberOfGuests
	}
	return held, nil
}
