package bookings

import (
	"time"

	"tourly/internal/capacity"
	"tourly/internal/pricing"

	"github.com/google/uuid"
)

// Booking defines one customer purchase of seats on a tour operation
type Booking struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OperationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"operation_id"`
	SlotID      *uuid.UUID `gorm:"type:uuid;index" json:"slot_id,omitempty"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	// GuideID is copied from the operation so company permission checks need no join.
	GuideID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"guide_id"`
	DepartureDate *time.Time `gorm:"type:date" json:"departure_date,omitempty"`

	AdultCount     int `gorm:"not null;check:adult_count >= 0" json:"adult_count"`
	ChildCount     int `gorm:"not null;check:child_count >= 0" json:"child_count"`
	NumberOfGuests int `gorm:"not null;check:number_of_guests > 0" json:"number_of_guests"`

	OriginalPrice   float64             `gorm:"type:decimal(18,2);not null" json:"original_price"`
	DiscountPercent float64             `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	TotalPrice      float64             `gorm:"type:decimal(18,2);not null" json:"total_price"`
	PricingType     pricing.PricingType `gorm:"type:varchar(20);not null" json:"pricing_type"`

	BookingCode      string `gorm:"type:varchar(32);uniqueIndex;not null" json:"booking_code"`
	PaymentOrderCode string `gorm:"type:varchar(32);uniqueIndex;not null" json:"payment_order_code"`
	PaymentURL       string `gorm:"type:text" json:"payment_url,omitempty"`

	Status Status `gorm:"type:varchar(30);not null;index;check:status IN ('Pending','Confirmed','CancellationRequested','Completed','CancelledByCustomer','CancelledByCompany','NoShow','Refunded')" json:"status"`
	// CapacityCommitted is set once the ledger increment has been applied.
	CapacityCommitted bool  `gorm:"not null;default:false" json:"capacity_committed"`
	Version           int64 `gorm:"not null;default:1" json:"-"`

	ReservedUntil      *time.Time `gorm:"index" json:"reserved_until,omitempty"`
	BookingDate        time.Time  `gorm:"not null" json:"booking_date"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	ContactName     string `gorm:"type:varchar(100);not null" json:"contact_name"`
	ContactPhone    string `gorm:"type:varchar(20);not null" json:"contact_phone"`
	ContactEmail    string `gorm:"type:varchar(255)" json:"contact_email,omitempty"`
	SpecialRequests string `gorm:"type:text" json:"special_requests,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string {
	return "tour_bookings"
}

// Resource is the capacity counter this booking draws on.
func (b *Booking) Resource() capacity.Resource {
	return capacity.Resource{OperationID: b.OperationID, SlotID: b.SlotID}
}

// HoldExpired reports whether an unpaid booking's reservation has lapsed.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == StatusPending && b.ReservedUntil != nil && !b.ReservedUntil.After(now)
}
