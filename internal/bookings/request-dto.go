package bookings

import "github.com/google/uuid"

type CreateBookingRequest struct {
	OperationID     uuid.UUID  `json:"operation_id" binding:"required"`
	SlotID          *uuid.UUID `json:"slot_id"`
	AdultCount      int        `json:"adult_count" binding:"gte=0,lte=1000"`
	ChildCount      int        `json:"child_count" binding:"gte=0,lte=1000"`
	NumberOfGuests  int        `json:"number_of_guests" binding:"required,gte=1,lte=1000"`
	ContactName     string     `json:"contact_name" binding:"required,max=100"`
	ContactPhone    string     `json:"contact_phone" binding:"required,max=20"`
	ContactEmail    string     `json:"contact_email" binding:"omitempty,email,max=255"`
	SpecialRequests string     `json:"special_requests" binding:"max=1000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type CancelSlotRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// BookingListQuery represents query parameters for listing bookings
type BookingListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status Status `form:"status"`
}

func (q *BookingListQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
}
