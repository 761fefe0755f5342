package capacity

import (
	"time"

	"github.com/google/uuid"
)

type CreateOperationRequest struct {
	TourListingID uuid.UUID `json:"tour_listing_id" binding:"required"`
	// GuideID is honoured for admins; guides always create operations for themselves.
	GuideID          uuid.UUID  `json:"guide_id"`
	Title            string     `json:"title" binding:"required,max=200"`
	BasePrice        float64    `json:"base_price" binding:"gte=0"`
	MaxGuests        int        `json:"max_guests" binding:"required,gte=1,lte=1000"`
	Publish          bool       `json:"publish"`
	ListingCreatedAt *time.Time `json:"listing_created_at"`
}

type AddSlotsRequest struct {
	// Dates are calendar days in YYYY-MM-DD form.
	Dates []string `json:"dates" binding:"required,min=1,max=366,dive,datetime=2006-01-02"`
	// MaxGuests defaults to the operation's capacity.
	MaxGuests int `json:"max_guests" binding:"omitempty,gte=1,lte=1000"`
}
