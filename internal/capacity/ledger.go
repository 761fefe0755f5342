package capacity

import (
	"context"
	"errors"
	"log/slog"

	"tourly/internal/shared/apperr"
	"tourly/internal/shared/constants"
	"tourly/internal/shared/transaction"
)

// Ledger is the only code path that changes currentBookings.
//
// Booking creation calls CheckAndHold, which validates the request against
// committed seats plus unexpired holds without incrementing anything. The
// increment happens in Confirm once payment succeeds. Every call must run
// inside the caller's transaction.
type Ledger interface {
	CheckAndHold(ctx context.Context, res Resource, guests int) error
	Confirm(ctx context.Context, res Resource, guests int) error
	Release(ctx context.Context, res Resource, guests int) error
}

// counterChange computes the next counter value from a fresh snapshot.
type counterChange func(c *Counter) (current int, status SlotStatus, err error)

func (s *service) CheckAndHold(ctx context.Context, res Resource, guests int) error {
	if guests <= 0 {
		return apperr.Validation("number of guests must be positive")
	}
	return s.mutate(ctx, res, func(c *Counter) (int, SlotStatus, error) {
		if err := checkBookable(c); err != nil {
			return 0, "", err
		}
		held, err := s.holds.ActiveHolds(ctx, res, s.now())
		if err != nil {
			return 0, "", err
		}
		if held+guests > c.Remaining() {
			return 0, "", apperr.CapacityExceeded()
		}
		// Unchanged values; the version bump alone serializes concurrent holders.
		return c.CurrentBookings, c.Status, nil
	})
}

func (s *service) Confirm(ctx context.Context, res Resource, guests int) error {
	if guests <= 0 {
		return apperr.Validation("number of guests must be positive")
	}
	return s.mutate(ctx, res, func(c *Counter) (int, SlotStatus, error) {
		if res.HasSlot() && (c.Status == SlotCancelled || c.Status == SlotCompleted) {
			return 0, "", apperr.InvalidState("departure is %s", c.Status)
		}
		if guests > c.Remaining() {
			return 0, "", apperr.CapacityExceeded()
		}
		next := c.CurrentBookings + guests
		status := c.Status
		if res.HasSlot() && next == c.MaxGuests && status == SlotAvailable {
			status = SlotFullyBooked
		}
		return next, status, nil
	})
}

func (s *service) Release(ctx context.Context, res Resource, guests int) error {
	if guests <= 0 {
		return nil
	}
	return s.mutate(ctx, res, func(c *Counter) (int, SlotStatus, error) {
		next := c.CurrentBookings - guests
		if next < 0 {
			next = 0
		}
		status := c.Status
		if res.HasSlot() && status == SlotFullyBooked && next < c.MaxGuests {
			status = SlotAvailable
		}
		return next, status, nil
	})
}

// mutate runs change against the latest counter and writes it with a
// compare-and-swap, retrying a bounded number of times when it loses.
func (s *service) mutate(ctx context.Context, res Resource, change counterChange) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		counter, err := s.repo.LoadCounter(ctx, res)
		if err != nil {
			return mapNotFound(err)
		}

		current, status, err := change(counter)
		if err != nil {
			return err
		}

		swapped, err := s.repo.CompareAndSwapCounter(ctx, res, counter.Version, current, status)
		if err != nil {
			return err
		}
		if swapped {
			s.InvalidateAvailability(ctx, res)
			return nil
		}
		s.log.LogCapacityConflict(ctx, res.String(), attempt)
	}
	return apperr.Conflict(ErrVersionConflict)
}

func checkBookable(c *Counter) error {
	if !c.IsActive {
		return apperr.InvalidState("%s is not active", c.Resource)
	}
	if !c.Resource.HasSlot() {
		return nil
	}
	switch c.Status {
	case SlotAvailable:
		return nil
	case SlotFullyBooked:
		return apperr.CapacityExceeded()
	case SlotCancelled, SlotCompleted, SlotInProgress:
		return apperr.InvalidState("departure is %s", c.Status)
	default:
		return apperr.InvalidState("departure has unknown status %q", c.Status)
	}
}

func mapNotFound(err error) error {
	switch {
	case errors.Is(err, ErrOperationNotFound):
		return apperr.NotFound("tour operation")
	case errors.Is(err, ErrSlotNotFound):
		return apperr.NotFound("tour slot")
	default:
		return err
	}
}

// InvalidateAvailability drops the cached availability of res's operation
// once the surrounding transaction commits, so readers never re-cache
// figures that are about to be rolled back or are not yet visible.
func (s *service) InvalidateAvailability(ctx context.Context, res Resource) {
	if s.cache == nil {
		return
	}
	pattern := constants.BuildOperationAvailabilityPattern(res.OperationID.String())
	transaction.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.log.WarnContext(ctx, "failed to invalidate availability cache",
				slog.String("resource", res.String()), slog.String("error", err.Error()))
		}
	})
}
