package refundpolicy

import "time"

// PolicyRequest is the write model for creating or replacing a policy.
// The binding tags are enforced both by gin and by the service itself.
type PolicyRequest struct {
	TriggerType             TriggerType `json:"trigger_type" binding:"required,oneof=UserCancellation CompanyCancellation AutoCancellation"`
	Name                    string      `json:"name" binding:"required,max=150"`
	Description             string      `json:"description" binding:"max=1000"`
	MinDaysBeforeEvent      int         `json:"min_days_before_event" binding:"gte=0"`
	MaxDaysBeforeEvent      *int        `json:"max_days_before_event" binding:"omitempty,gte=0"`
	RefundPercentage        float64     `json:"refund_percentage" binding:"gte=0,lte=100"`
	ProcessingFee           float64     `json:"processing_fee" binding:"gte=0"`
	ProcessingFeePercentage float64     `json:"processing_fee_percentage" binding:"gte=0,lte=100"`
	Priority                int         `json:"priority" binding:"gte=1,lte=100"`
	EffectiveFrom           *time.Time  `json:"effective_from"`
	EffectiveTo             *time.Time  `json:"effective_to"`
	IsActive                *bool       `json:"is_active"`
}

// CalculateQuery is the query string of the public preview endpoint.
type CalculateQuery struct {
	Amount      float64     `form:"amount" binding:"gte=0"`
	TriggerType TriggerType `form:"trigger_type" binding:"omitempty,oneof=UserCancellation CompanyCancellation AutoCancellation"`
	Days        int         `form:"days" binding:"gte=0"`
}
