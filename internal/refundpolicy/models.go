package refundpolicy

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType is the reason category that selects a policy band.
type TriggerType string

const (
	TriggerUserCancellation    TriggerType = "UserCancellation"
	TriggerCompanyCancellation TriggerType = "CompanyCancellation"
	TriggerAutoCancellation    TriggerType = "AutoCancellation"
)

func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerUserCancellation, TriggerCompanyCancellation, TriggerAutoCancellation:
		return true
	default:
		return false
	}
}

func (t TriggerType) String() string {
	return string(t)
}

// RefundPolicy maps a trigger type and a days-before-departure band to a refund rate.
// Both day bounds are inclusive; a nil MaxDaysBeforeEvent means "and beyond".
type RefundPolicy struct {
	ID                      uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TriggerType             TriggerType `gorm:"type:varchar(30);not null;index:idx_refund_policies_lookup,priority:1;check:trigger_type IN ('UserCancellation','CompanyCancellation','AutoCancellation')" json:"trigger_type"`
	Name                    string      `gorm:"type:varchar(150);not null" json:"name"`
	Description             string      `gorm:"type:text" json:"description,omitempty"`
	MinDaysBeforeEvent      int         `gorm:"not null;check:min_days_before_event >= 0" json:"min_days_before_event"`
	MaxDaysBeforeEvent      *int        `json:"max_days_before_event"`
	RefundPercentage        float64     `gorm:"type:decimal(5,2);not null;check:refund_percentage BETWEEN 0 AND 100" json:"refund_percentage"`
	ProcessingFee           float64     `gorm:"type:decimal(18,2);not null;default:0;check:processing_fee >= 0" json:"processing_fee"`
	ProcessingFeePercentage float64     `gorm:"type:decimal(5,2);not null;default:0;check:processing_fee_percentage BETWEEN 0 AND 100" json:"processing_fee_percentage"`
	Priority                int         `gorm:"not null;default:1;check:priority BETWEEN 1 AND 100" json:"priority"`
	EffectiveFrom           time.Time   `gorm:"not null" json:"effective_from"`
	EffectiveTo             *time.Time  `json:"effective_to,omitempty"`
	IsActive                bool        `gorm:"not null;default:true;index:idx_refund_policies_lookup,priority:2" json:"is_active"`
	CreatedBy               *uuid.UUID  `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
	DeletedAt               *time.Time  `gorm:"index" json:"deleted_at,omitempty"`
}

func (RefundPolicy) TableName() string {
	return "refund_policies"
}

func (p *RefundPolicy) DayRange() DayRange {
	return NewDayRange(p.MinDaysBeforeEvent, p.MaxDaysBeforeEvent)
}

func (p *RefundPolicy) Window() Window {
	return Window{From: p.EffectiveFrom, To: p.EffectiveTo}
}

// Applies reports whether the policy is live at `at` and covers daysBeforeEvent.
func (p *RefundPolicy) Applies(daysBeforeEvent int, at time.Time) bool {
	return p.IsActive && p.DeletedAt == nil &&
		p.Window().Contains(at) &&
		p.DayRange().Contains(daysBeforeEvent)
}

// RefundCalculation is the outcome of applying the policy table to an amount.
type RefundCalculation struct {
	Eligible         bool        `json:"eligible"`
	Reason           string      `json:"reason,omitempty"`
	TriggerType      TriggerType `json:"trigger_type"`
	DaysBeforeEvent  int         `json:"days_before_event"`
	OriginalAmount   float64     `json:"original_amount"`
	PolicyID         *uuid.UUID  `json:"policy_id,omitempty"`
	PolicyName       string      `json:"policy_name,omitempty"`
	RefundPercentage float64     `json:"refund_percentage"`
	RefundBeforeFee  float64     `json:"refund_before_fee"`
	ProcessingFee    float64     `json:"processing_fee"`
	NetRefund        float64     `json:"net_refund"`
}
