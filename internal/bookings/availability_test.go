package bookings_test

import (
	"context"
	"testing"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/shared/constants"
	"tourly/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCachedAvailabilityFollowsHolds(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := newCachedHarness(t, cache.NewService(client))
	op, slots := h.operation(4, 20)
	slotID := slots[0].ID
	key := constants.BuildAvailabilityKey(op.ID.String(), slotID.String())

	availability := func() *capacity.Availability {
		t.Helper()
		av, err := h.capacity.Availability(ctx, op.ID, &slotID)
		if err != nil {
			t.Fatalf("Availability() error = %v", err)
		}
		return av
	}

	customer := newCustomer()
	b := h.mustBook(customer, op.ID, &slotID, 3)

	if av := availability(); av.HeldGuests != 3 || av.AvailableSpots != 1 {
		t.Fatalf("after booking: held = %d, spots = %d", av.HeldGuests, av.AvailableSpots)
	}
	if !mr.Exists(key) {
		t.Fatalf("availability should be cached under %s", key)
	}

	// A Pending cancel never moves the counter but still frees the hold.
	if _, err := h.svc.CancelBooking(ctx, b.ID, customer, ""); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("cancelling a held booking should drop the cached availability")
	}
	if av := availability(); av.HeldGuests != 0 || av.AvailableSpots != 4 {
		t.Fatalf("after cancel: held = %d, spots = %d", av.HeldGuests, av.AvailableSpots)
	}

	// Hold expiry goes through the same path.
	expiring := h.mustBook(newCustomer(), op.ID, &slotID, 2)
	if av := availability(); av.HeldGuests != 2 {
		t.Fatalf("held = %d, want 2", av.HeldGuests)
	}
	h.clock.Advance(31 * time.Minute)
	if n, err := h.svc.ExpireStaleHolds(ctx, 10); err != nil || n != 1 {
		t.Fatalf("ExpireStaleHolds() = %d, %v; want 1", n, err)
	}
	if got := h.reload(expiring.ID).Status; !got.IsCancelled() {
		t.Fatalf("expired booking status = %s", got)
	}
	if av := availability(); av.HeldGuests != 0 || av.AvailableSpots != 4 {
		t.Fatalf("after expiry: held = %d, spots = %d", av.HeldGuests, av.AvailableSpots)
	}
}
