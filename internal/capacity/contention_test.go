package capacity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/shared/apperr"
	"tourly/internal/storage/memory"
)

// fixedHolds reports a hold count the test controls.
type fixedHolds struct {
	mu   sync.Mutex
	held int
}

func (f *fixedHolds) ActiveHolds(context.Context, capacity.Resource, time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held, nil
}

func (f *fixedHolds) add(guests int) {
	f.mu.Lock()
	f.held += guests
	f.mu.Unlock()
}

// contendedRepository lets another creator slip in between the counter read
// and the write: on the first swap, that creator's hold is placed and the
// version moves on, so the caller's swap loses.
type contendedRepository struct {
	capacity.Repository
	holds      *fixedHolds
	rival      int
	alwaysLose bool

	swaps    int
	contests int
}

func (r *contendedRepository) CompareAndSwapCounter(ctx context.Context, res capacity.Resource, expected int64, current int, status capacity.SlotStatus) (bool, error) {
	r.swaps++
	if r.contests == 0 || r.alwaysLose {
		r.contests++
		if r.contests == 1 {
			r.holds.add(r.rival)
		}
		ok, err := r.Repository.CompareAndSwapCounter(ctx, res, expected, current, status)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.New("rival write did not land")
		}
		return false, nil
	}
	return r.Repository.CompareAndSwapCounter(ctx, res, expected, current, status)
}

func TestCheckAndHoldRechecksAfterLosingTheRace(t *testing.T) {
	tests := []struct {
		name       string
		maxGuests  int
		rival      int
		guests     int
		alwaysLose bool
		wantErr    apperr.Kind
		wantSwaps  int
	}{
		{name: "rival took the last seats", maxGuests: 4, rival: 2, guests: 3, wantErr: apperr.KindCapacityExceeded, wantSwaps: 1},
		{name: "room left after the rival", maxGuests: 4, rival: 1, guests: 3, wantSwaps: 2},
		{name: "never wins the row", maxGuests: 10, rival: 1, guests: 1, alwaysLose: true, wantErr: apperr.KindConcurrencyConflict, wantSwaps: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			holds := &fixedHolds{}
			repo := &contendedRepository{Repository: store.Capacity(), holds: holds, rival: tt.rival, alwaysLose: tt.alwaysLose}
			svc := capacity.WithClock(
				capacity.NewService(repo, holds, nil, capacity.Options{MaxAttempts: 3}),
				func() time.Time { return testNow },
			)
			op := createOperation(t, svc, tt.maxGuests)
			res := capacity.Resource{OperationID: op.ID}

			before, err := store.Capacity().LoadCounter(ctx, res)
			if err != nil {
				t.Fatalf("LoadCounter() error = %v", err)
			}

			err = svc.CheckAndHold(ctx, res, tt.guests)
			if tt.wantErr != "" {
				if !apperr.IsKind(err, tt.wantErr) {
					t.Fatalf("CheckAndHold() error = %v, want kind %s", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("CheckAndHold() error = %v", err)
			}
			if repo.swaps != tt.wantSwaps {
				t.Errorf("swap attempts = %d, want %d", repo.swaps, tt.wantSwaps)
			}

			after, err := store.Capacity().LoadCounter(ctx, res)
			if err != nil {
				t.Fatalf("LoadCounter() error = %v", err)
			}
			if after.CurrentBookings != before.CurrentBookings {
				t.Errorf("holds must not move the counter: %d -> %d", before.CurrentBookings, after.CurrentBookings)
			}
			if after.Version <= before.Version {
				t.Errorf("version = %d, want it bumped past %d", after.Version, before.Version)
			}
		})
	}
}
