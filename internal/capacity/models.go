package capacity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the closed set of states a departure slot can be in.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "Available"
	SlotFullyBooked SlotStatus = "FullyBooked"
	SlotCancelled   SlotStatus = "Cancelled"
	SlotCompleted   SlotStatus = "Completed"
	SlotInProgress  SlotStatus = "InProgress"
)

func (s SlotStatus) IsValid() bool {
	switch s {
	case SlotAvailable, SlotFullyBooked, SlotCancelled, SlotCompleted, SlotInProgress:
		return true
	default:
		return false
	}
}

func (s SlotStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	switch s {
	case SlotAvailable:
		return next == SlotFullyBooked || next == SlotCancelled || next == SlotInProgress || next == SlotCompleted
	case SlotFullyBooked:
		return next == SlotAvailable || next == SlotCancelled || next == SlotInProgress || next == SlotCompleted
	case SlotInProgress:
		return next == SlotCompleted || next == SlotCancelled
	case SlotCancelled, SlotCompleted:
		return false
	default:
		return false
	}
}

// TourOperation is the bookable side of a published tour listing.
// CurrentBookings is only mutated for operations without slots; for
// operations with slots the operation-level figure is derived from them.
type TourOperation struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TourListingID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tour_listing_id"`
	GuideID          uuid.UUID `gorm:"type:uuid;not null;index" json:"guide_id"`
	Title            string    `gorm:"type:varchar(200);not null" json:"title"`
	BasePrice        float64   `gorm:"type:decimal(18,2);not null;check:base_price >= 0" json:"base_price"`
	MaxGuests        int       `gorm:"not null;check:max_guests > 0" json:"max_guests"`
	CurrentBookings  int       `gorm:"not null;default:0;check:current_bookings >= 0 AND current_bookings <= max_guests" json:"current_bookings"`
	Version          int64     `gorm:"not null;default:1" json:"-"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsPublished      bool      `gorm:"not null;default:false" json:"is_published"`
	ListingCreatedAt time.Time `gorm:"not null" json:"listing_created_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (TourOperation) TableName() string {
	return "tour_operations"
}

// TourSlot is one dated departure of an operation.
type TourSlot struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OperationID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_tour_slots_operation_date" json:"operation_id"`
	DepartureDate   time.Time  `gorm:"type:date;not null;uniqueIndex:idx_tour_slots_operation_date;index" json:"departure_date"`
	MaxGuests       int        `gorm:"not null;check:max_guests > 0" json:"max_guests"`
	CurrentBookings int        `gorm:"not null;default:0;check:current_bookings >= 0 AND current_bookings <= max_guests" json:"current_bookings"`
	Version         int64      `gorm:"not null;default:1" json:"-"`
	Status          SlotStatus `gorm:"type:varchar(20);not null;default:'Available';check:status IN ('Available','FullyBooked','Cancelled','Completed','InProgress')" json:"status"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (TourSlot) TableName() string {
	return "tour_slots"
}

// Resource identifies the counter a booking draws on: the slot when one is
// chosen, otherwise the operation itself.
type Resource struct {
	OperationID uuid.UUID
	SlotID      *uuid.UUID
}

func (r Resource) HasSlot() bool {
	return r.SlotID != nil
}

func (r Resource) String() string {
	if r.SlotID != nil {
		return fmt.Sprintf("slot:%s", *r.SlotID)
	}
	return fmt.Sprintf("operation:%s", r.OperationID)
}

// Counter is a versioned snapshot of one capacity row.
type Counter struct {
	Resource        Resource
	MaxGuests       int
	CurrentBookings int
	Version         int64
	// Status is empty for operation-level counters.
	Status   SlotStatus
	IsActive bool
}

// Counter snapshots the operation's own counter, used when it has no slots.
func (o *TourOperation) Counter() *Counter {
	return &Counter{
		Resource:        Resource{OperationID: o.ID},
		MaxGuests:       o.MaxGuests,
		CurrentBookings: o.CurrentBookings,
		Version:         o.Version,
		IsActive:        o.IsActive,
	}
}

func (s *TourSlot) Counter() *Counter {
	id := s.ID
	return &Counter{
		Resource:        Resource{OperationID: s.OperationID, SlotID: &id},
		MaxGuests:       s.MaxGuests,
		CurrentBookings: s.CurrentBookings,
		Version:         s.Version,
		Status:          s.Status,
		IsActive:        s.IsActive,
	}
}

func (c *Counter) Remaining() int {
	if left := c.MaxGuests - c.CurrentBookings; left > 0 {
		return left
	}
	return 0
}

// Availability is the read model served to clients.
type Availability struct {
	OperationID     uuid.UUID  `json:"operation_id"`
	SlotID          *uuid.UUID `json:"slot_id,omitempty"`
	DepartureDate   *time.Time `json:"departure_date,omitempty"`
	Status          SlotStatus `json:"status,omitempty"`
	MaxGuests       int        `json:"max_guests"`
	CurrentBookings int        `json:"current_bookings"`
	HeldGuests      int        `json:"held_guests"`
	AvailableSpots  int        `json:"available_spots"`
	// Derived is set when the figures are summed over the operation's slots.
	Derived bool `json:"derived"`
}
