package refunds

import (
	"time"

	"tourly/internal/refundpolicy"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCancelled
	case StatusApproved:
		return next == StatusCompleted
	case StatusRejected, StatusCompleted, StatusCancelled:
		return false
	default:
		return false
	}
}

// IsOpen reports whether the refund still owes or has paid the customer.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusApproved || s == StatusCompleted
}

// TourBookingRefund is a refund request against one booking. The amounts
// and the policy figures are snapshotted when the request is created.
type TourBookingRefund struct {
	ID          uuid.UUID                `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID   uuid.UUID                `gorm:"type:uuid;not null;index" json:"booking_id"`
	BookingCode string                   `gorm:"type:varchar(32);not null" json:"booking_code"`
	CustomerID  uuid.UUID                `gorm:"type:uuid;not null;index" json:"customer_id"`
	TriggerType refundpolicy.TriggerType `gorm:"type:varchar(30);not null" json:"trigger_type"`
	Reason      string                   `gorm:"type:text" json:"reason"`

	OriginalAmount   float64  `gorm:"type:decimal(18,2);not null" json:"original_amount"`
	RequestedAmount  float64  `gorm:"type:decimal(18,2);not null" json:"requested_amount"`
	ApprovedAmount   *float64 `gorm:"type:decimal(18,2)" json:"approved_amount,omitempty"`
	ProcessingFee    float64  `gorm:"type:decimal(18,2);not null;default:0" json:"processing_fee"`
	DaysBeforeTour   int      `gorm:"not null" json:"days_before_tour"`
	RefundPercentage float64  `gorm:"type:decimal(5,2);not null" json:"refund_percentage"`
	// PolicyID is the rule that produced the snapshot, if any.
	PolicyID *uuid.UUID `gorm:"type:uuid" json:"policy_id,omitempty"`

	Status  Status `gorm:"type:varchar(20);not null;index;check:status IN ('Pending','Approved','Rejected','Completed','Cancelled')" json:"status"`
	Version int64  `gorm:"not null;default:1" json:"-"`

	BankName          string `gorm:"type:varchar(100)" json:"bank_name,omitempty"`
	BankAccountNumber string `gorm:"type:varchar(50)" json:"bank_account_number,omitempty"`
	BankAccountHolder string `gorm:"type:varchar(100)" json:"bank_account_holder,omitempty"`

	AdminNote            string     `gorm:"type:text" json:"admin_note,omitempty"`
	ProcessedBy          *uuid.UUID `gorm:"type:uuid" json:"processed_by,omitempty"`
	TransactionReference string     `gorm:"type:varchar(100)" json:"transaction_reference,omitempty"`

	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (TourBookingRefund) TableName() string {
	return "tour_booking_refunds"
}

// RecalculateFromSnapshot reruns the calculator with the figures frozen on
// the request, so later policy edits cannot change what was promised.
func (r *TourBookingRefund) RecalculateFromSnapshot() refundpolicy.RefundCalculation {
	snapshot := &refundpolicy.RefundPolicy{
		TriggerType:      r.TriggerType,
		Name:             "snapshot",
		RefundPercentage: r.RefundPercentage,
		ProcessingFee:    r.ProcessingFee,
	}
	if r.PolicyID != nil {
		snapshot.ID = *r.PolicyID
	}
	return refundpolicy.Calculate(snapshot, r.OriginalAmount, r.TriggerType, r.DaysBeforeTour)
}

// RefundTimelineEntry is an append-only record of one status change.
type RefundTimelineEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RefundID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"refund_id"`
	FromStatus Status     `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   Status     `gorm:"type:varchar(20);not null" json:"to_status"`
	ActorID    *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Note       string     `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
}

func (RefundTimelineEntry) TableName() string {
	return "refund_timeline_entries"
}
