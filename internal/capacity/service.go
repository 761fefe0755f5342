package capacity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tourly/internal/shared/apperr"
	"tourly/internal/shared/constants"
	"tourly/internal/users"
	"tourly/pkg/cache"
	"tourly/pkg/logger"

	"github.com/google/uuid"
)

// HoldCounter reports seats claimed by unexpired Pending bookings.
type HoldCounter interface {
	ActiveHolds(ctx context.Context, res Resource, at time.Time) (int, error)
}

// Service interface defines the capacity ledger plus the operation and slot
// administration around it.
type Service interface {
	Ledger

	CreateOperation(ctx context.Context, actor users.Actor, req CreateOperationRequest) (*TourOperation, error)
	AddSlots(ctx context.Context, actor users.Actor, operationID uuid.UUID, req AddSlotsRequest) ([]TourSlot, error)
	DeactivateOperation(ctx context.Context, actor users.Actor, operationID uuid.UUID) error
	GetOperation(ctx context.Context, id uuid.UUID) (*TourOperation, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*TourSlot, error)
	ListSlots(ctx context.Context, operationID uuid.UUID, upcomingOnly bool) ([]TourSlot, error)
	Availability(ctx context.Context, operationID uuid.UUID, slotID *uuid.UUID) (*Availability, error)

	HasSlots(ctx context.Context, operationID uuid.UUID) (bool, error)
	// InvalidateAvailability is for changes the counter does not see, such
	// as a Pending hold ending.
	InvalidateAvailability(ctx context.Context, res Resource)

	// MarkSlotCancelled and CompleteSlot move a slot along its status machine
	// without touching the counter. Repeating the same move is a no-op.
	MarkSlotCancelled(ctx context.Context, slotID uuid.UUID) error
	CompleteSlot(ctx context.Context, slotID uuid.UUID) error
	ListDepartedSlots(ctx context.Context, before time.Time, limit int) ([]TourSlot, error)
}

type Options struct {
	MaxAttempts int
	CacheTTL    time.Duration
	Location    *time.Location
}

type service struct {
	repo        Repository
	holds       HoldCounter
	cache       cache.Service
	log         *logger.Logger
	maxAttempts int
	cacheTTL    time.Duration
	loc         *time.Location
	now         func() time.Time
}

// NewService wires the ledger. cacheService may be nil to disable caching.
func NewService(repo Repository, holds HoldCounter, cacheService cache.Service, opts Options) Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = constants.TTL_AVAILABILITY
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &service{
		repo:        repo,
		holds:       holds,
		cache:       cacheService,
		log:         logger.GetDefault(),
		maxAttempts: opts.MaxAttempts,
		cacheTTL:    opts.CacheTTL,
		loc:         opts.Location,
		now:         time.Now,
	}
}

// WithClock replaces the service clock; used by tests.
func WithClock(svc Service, now func() time.Time) Service {
	if s, ok := svc.(*service); ok {
		s.now = now
	}
	return svc
}

func (s *service) CreateOperation(ctx context.Context, actor users.Actor, req CreateOperationRequest) (*TourOperation, error) {
	guideID := req.GuideID
	switch actor.Role {
	case users.RoleGuide:
		guideID = actor.ID
	case users.RoleAdmin:
		if guideID == uuid.Nil {
			return nil, apperr.Validation("guide_id is required")
		}
	default:
		return nil, apperr.PermissionDenied("only guides and admins can create tour operations")
	}
	if req.MaxGuests <= 0 {
		return nil, apperr.Validation("max_guests must be positive")
	}
	if req.BasePrice < 0 {
		return nil, apperr.Validation("base_price must not be negative")
	}

	listed := s.now()
	if req.ListingCreatedAt != nil {
		listed = *req.ListingCreatedAt
	}

	op := &TourOperation{
		ID:               uuid.New(),
		TourListingID:    req.TourListingID,
		GuideID:          guideID,
		Title:            req.Title,
		BasePrice:        req.BasePrice,
		MaxGuests:        req.MaxGuests,
		Version:          1,
		IsActive:         true,
		IsPublished:      req.Publish,
		ListingCreatedAt: listed,
	}
	if err := s.repo.CreateOperation(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *service) AddSlots(ctx context.Context, actor users.Actor, operationID uuid.UUID, req AddSlotsRequest) ([]TourSlot, error) {
	op, err := s.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOperator(actor, op); err != nil {
		return nil, err
	}

	maxGuests := req.MaxGuests
	if maxGuests == 0 {
		maxGuests = op.MaxGuests
	}

	today := dateIn(s.now(), s.loc)
	seen := make(map[string]bool, len(req.Dates))
	slots := make([]TourSlot, 0, len(req.Dates))
	for _, raw := range req.Dates {
		day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return nil, apperr.Validation("invalid departure date %q", raw)
		}
		if day.Before(today) {
			return nil, apperr.Validation("departure date %s is in the past", raw)
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		slots = append(slots, TourSlot{
			ID:            uuid.New(),
			OperationID:   op.ID,
			DepartureDate: day,
			MaxGuests:     maxGuests,
			Version:       1,
			Status:        SlotAvailable,
			IsActive:      true,
		})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].DepartureDate.Before(slots[j].DepartureDate) })

	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			return nil, apperr.Validation("operation already has a departure on one of those dates")
		}
		return nil, err
	}
	s.InvalidateAvailability(ctx, Resource{OperationID: op.ID})
	return slots, nil
}

func (s *service) DeactivateOperation(ctx context.Context, actor users.Actor, operationID uuid.UUID) error {
	op, err := s.GetOperation(ctx, operationID)
	if err != nil {
		return err
	}
	if err := authorizeOperator(actor, op); err != nil {
		return err
	}
	if err := s.repo.SetOperationFlags(ctx, op.ID, false, op.IsPublished); err != nil {
		return mapNotFound(err)
	}
	s.InvalidateAvailability(ctx, Resource{OperationID: op.ID})
	return nil
}

func (s *service) GetOperation(ctx context.Context, id uuid.UUID) (*TourOperation, error) {
	op, err := s.repo.GetOperation(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return op, nil
}

func (s *service) GetSlot(ctx context.Context, id uuid.UUID) (*TourSlot, error) {
	slot, err := s.repo.GetSlot(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return slot, nil
}

func (s *service) ListSlots(ctx context.Context, operationID uuid.UUID, upcomingOnly bool) ([]TourSlot, error) {
	if _, err := s.GetOperation(ctx, operationID); err != nil {
		return nil, err
	}
	var from *time.Time
	if upcomingOnly {
		today := dateIn(s.now(), s.loc)
		from = &today
	}
	return s.repo.ListSlots(ctx, operationID, from)
}

func (s *service) Availability(ctx context.Context, operationID uuid.UUID, slotID *uuid.UUID) (*Availability, error) {
	fetch := func() (interface{}, error) {
		return s.loadAvailability(ctx, operationID, slotID)
	}
	if s.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*Availability), nil
	}

	slotKey := ""
	if slotID != nil {
		slotKey = slotID.String()
	}
	var result Availability
	err := s.cache.GetOrSet(ctx, constants.BuildAvailabilityKey(operationID.String(), slotKey), s.cacheTTL, fetch, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) loadAvailability(ctx context.Context, operationID uuid.UUID, slotID *uuid.UUID) (*Availability, error) {
	now := s.now()

	if slotID != nil {
		slot, err := s.GetSlot(ctx, *slotID)
		if err != nil {
			return nil, err
		}
		if slot.OperationID != operationID {
			return nil, apperr.NotFound("tour slot")
		}
		held, err := s.holds.ActiveHolds(ctx, Resource{OperationID: operationID, SlotID: slotID}, now)
		if err != nil {
			return nil, err
		}
		departure := slot.DepartureDate
		return &Availability{
			OperationID:     operationID,
			SlotID:          slotID,
			DepartureDate:   &departure,
			Status:          slot.Status,
			MaxGuests:       slot.MaxGuests,
			CurrentBookings: slot.CurrentBookings,
			HeldGuests:      held,
			AvailableSpots:  bookableSpots(slot.Counter(), held),
		}, nil
	}

	op, err := s.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	hasSlots, err := s.HasSlots(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if !hasSlots {
		held, err := s.holds.ActiveHolds(ctx, Resource{OperationID: operationID}, now)
		if err != nil {
			return nil, err
		}
		return &Availability{
			OperationID:     operationID,
			MaxGuests:       op.MaxGuests,
			CurrentBookings: op.CurrentBookings,
			HeldGuests:      held,
			AvailableSpots:  bookableSpots(op.Counter(), held),
		}, nil
	}

	slots, err := s.repo.ListSlots(ctx, operationID, nil)
	if err != nil {
		return nil, err
	}
	total := &Availability{OperationID: operationID, Derived: true}
	for i := range slots {
		slot := &slots[i]
		if !slot.IsActive || slot.Status == SlotCancelled || slot.Status == SlotCompleted {
			continue
		}
		id := slot.ID
		held, err := s.holds.ActiveHolds(ctx, Resource{OperationID: operationID, SlotID: &id}, now)
		if err != nil {
			return nil, err
		}
		total.MaxGuests += slot.MaxGuests
		total.CurrentBookings += slot.CurrentBookings
		total.HeldGuests += held
		if op.IsActive {
			total.AvailableSpots += bookableSpots(slot.Counter(), held)
		}
	}
	return total, nil
}

func (s *service) HasSlots(ctx context.Context, operationID uuid.UUID) (bool, error) {
	count, err := s.repo.CountSlots(ctx, operationID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *service) MarkSlotCancelled(ctx context.Context, slotID uuid.UUID) error {
	return s.setSlotStatus(ctx, slotID, SlotCancelled)
}

func (s *service) CompleteSlot(ctx context.Context, slotID uuid.UUID) error {
	return s.setSlotStatus(ctx, slotID, SlotCompleted)
}

func (s *service) setSlotStatus(ctx context.Context, slotID uuid.UUID, status SlotStatus) error {
	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	res := Resource{OperationID: slot.OperationID, SlotID: &slot.ID}
	return s.mutate(ctx, res, func(c *Counter) (int, SlotStatus, error) {
		if c.Status == status {
			return c.CurrentBookings, c.Status, nil
		}
		if !c.Status.CanTransitionTo(status) {
			return 0, "", apperr.InvalidState("departure cannot move from %s to %s", c.Status, status)
		}
		return c.CurrentBookings, status, nil
	})
}

func (s *service) ListDepartedSlots(ctx context.Context, before time.Time, limit int) ([]TourSlot, error) {
	return s.repo.ListDepartedSlots(ctx, dateIn(before, s.loc), limit)
}

func authorizeOperator(actor users.Actor, op *TourOperation) error {
	if actor.IsAdmin() || (actor.Role == users.RoleGuide && actor.ID == op.GuideID) {
		return nil
	}
	return apperr.PermissionDenied(fmt.Sprintf("not allowed to manage operation %s", op.ID))
}

// bookableSpots is zero whenever a new booking would be refused outright.
func bookableSpots(c *Counter, held int) int {
	if checkBookable(c) != nil {
		return 0
	}
	return spots(c.MaxGuests, c.CurrentBookings, held)
}

func spots(maxGuests, current, held int) int {
	if left := maxGuests - current - held; left > 0 {
		return left
	}
	return 0
}

// dateIn returns midnight UTC of t's calendar day in loc, matching how
// departure dates are stored.
func dateIn(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
