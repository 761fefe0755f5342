package memory

import (
	"context"
	"sort"
	"time"

	"tourly/internal/capacity"

	"github.com/google/uuid"
)

type capacityRepo struct {
	s *Store
}

func (r *capacityRepo) CreateOperation(ctx context.Context, op *capacity.TourOperation) error {
	return r.s.do(ctx, func() error {
		if op.ID == uuid.Nil {
			op.ID = uuid.New()
		}
		if op.Version == 0 {
			op.Version = 1
		}
		now := time.Now()
		op.CreatedAt, op.UpdatedAt = now, now
		r.s.operations[op.ID] = *op
		return nil
	})
}

func (r *capacityRepo) GetOperation(ctx context.Context, id uuid.UUID) (*capacity.TourOperation, error) {
	var op capacity.TourOperation
	err := r.s.do(ctx, func() error {
		stored, ok := r.s.operations[id]
		if !ok {
			return capacity.ErrOperationNotFound
		}
		op = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *capacityRepo) SetOperationFlags(ctx context.Context, id uuid.UUID, isActive, isPublished bool) error {
	return r.s.do(ctx, func() error {
		op, ok := r.s.operations[id]
		if !ok {
			return capacity.ErrOperationNotFound
		}
		op.IsActive = isActive
		op.IsPublished = isPublished
		op.UpdatedAt = time.Now()
		r.s.operations[id] = op
		return nil
	})
}

func (r *capacityRepo) CreateSlots(ctx context.Context, slots []capacity.TourSlot) error {
	return r.s.do(ctx, func() error {
		for i := range slots {
			for _, existing := range r.s.slots {
				if existing.OperationID == slots[i].OperationID && existing.DepartureDate.Equal(slots[i].DepartureDate) {
					return capacity.ErrDuplicateSlot
				}
			}
		}
		for i := range slots {
			if slots[i].ID == uuid.Nil {
				slots[i].ID = uuid.New()
			}
			if slots[i].Version == 0 {
				slots[i].Version = 1
			}
			if slots[i].Status == "" {
				slots[i].Status = capacity.SlotAvailable
			}
			now := time.Now()
			slots[i].CreatedAt, slots[i].UpdatedAt = now, now
			r.s.slots[slots[i].ID] = slots[i]
		}
		return nil
	})
}

func (r *capacityRepo) GetSlot(ctx context.Context, id uuid.UUID) (*capacity.TourSlot, error) {
	var slot capacity.TourSlot
	err := r.s.do(ctx, func() error {
		stored, ok := r.s.slots[id]
		if !ok {
			return capacity.ErrSlotNotFound
		}
		slot = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *capacityRepo) ListSlots(ctx context.Context, operationID uuid.UUID, from *time.Time) ([]capacity.TourSlot, error) {
	var out []capacity.TourSlot
	err := r.s.do(ctx, func() error {
		for _, slot := range r.s.slots {
			if slot.OperationID != operationID {
				continue
			}
			if from != nil && slot.DepartureDate.Before(*from) {
				continue
			}
			out = append(out, slot)
		}
		return nil
	})
	sortSlots(out)
	return out, err
}

func (r *capacityRepo) CountSlots(ctx context.Context, operationID uuid.UUID) (int64, error) {
	var count int64
	err := r.s.do(ctx, func() error {
		for _, slot := range r.s.slots {
			if slot.OperationID == operationID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *capacityRepo) ListDepartedSlots(ctx context.Context, before time.Time, limit int) ([]capacity.TourSlot, error) {
	var out []capacity.TourSlot
	err := r.s.do(ctx, func() error {
		for _, slot := range r.s.slots {
			switch slot.Status {
			case capacity.SlotAvailable, capacity.SlotFullyBooked, capacity.SlotInProgress:
			default:
				continue
			}
			if slot.DepartureDate.Before(before) {
				out = append(out, slot)
			}
		}
		return nil
	})
	sortSlots(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *capacityRepo) LoadCounter(ctx context.Context, res capacity.Resource) (*capacity.Counter, error) {
	var counter *capacity.Counter
	err := r.s.do(ctx, func() error {
		if res.SlotID != nil {
			slot, ok := r.s.slots[*res.SlotID]
			if !ok || slot.OperationID != res.OperationID {
				return capacity.ErrSlotNotFound
			}
			counter = slot.Counter()
			return nil
		}
		op, ok := r.s.operations[res.OperationID]
		if !ok {
			return capacity.ErrOperationNotFound
		}
		counter = op.Counter()
		return nil
	})
	return counter, err
}

func (r *capacityRepo) CompareAndSwapCounter(ctx context.Context, res capacity.Resource, expectedVersion int64, current int, status capacity.SlotStatus) (bool, error) {
	swapped := false
	err := r.s.do(ctx, func() error {
		now := time.Now()
		if res.SlotID != nil {
			slot, ok := r.s.slots[*res.SlotID]
			if !ok || slot.Version != expectedVersion {
				return nil
			}
			slot.CurrentBookings = current
			slot.Status = status
			slot.Version++
			slot.UpdatedAt = now
			r.s.slots[slot.ID] = slot
			swapped = true
			return nil
		}
		op, ok := r.s.operations[res.OperationID]
		if !ok || op.Version != expectedVersion {
			return nil
		}
		op.CurrentBookings = current
		op.Version++
		op.UpdatedAt = now
		r.s.operations[op.ID] = op
		swapped = true
		return nil
	})
	return swapped, err
}

func sortSlots(slots []capacity.TourSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].DepartureDate.Before(slots[j].DepartureDate) })
}
