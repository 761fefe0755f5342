package bookings

import (
	"math"

	"tourly/internal/refundpolicy"
)

type CreateBookingResponse struct {
	Booking    *Booking `json:"booking"`
	PaymentURL string   `json:"payment_url"`
}

// PaymentOutcome describes what a payment callback did to its booking.
type PaymentOutcome string

const (
	OutcomeConfirmed        PaymentOutcome = "Confirmed"
	OutcomeCancelled        PaymentOutcome = "Cancelled"
	OutcomeAlreadyProcessed PaymentOutcome = "AlreadyProcessed"
	// OutcomeCapacityLost means the payment succeeded but the seats were
	// taken in the meantime; the booking was cancelled and refunded.
	OutcomeCapacityLost PaymentOutcome = "CapacityLost"
	// OutcomeLatePayment means the booking had already been cancelled when
	// the payment arrived; a refund was recorded.
	OutcomeLatePayment PaymentOutcome = "LatePayment"
)

type PaymentResult struct {
	Outcome PaymentOutcome                  `json:"outcome"`
	Booking *Booking                        `json:"booking"`
	Refund  *refundpolicy.RefundCalculation `json:"refund,omitempty"`
}

type CancelResult struct {
	Booking          *Booking                        `json:"booking"`
	CapacityReleased bool                            `json:"capacity_released"`
	Refund           *refundpolicy.RefundCalculation `json:"refund,omitempty"`
}

type BookingList struct {
	Bookings   []Booking `json:"bookings"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
