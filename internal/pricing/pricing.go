// Package pricing computes the price a customer pays for a tour seat.
//
// Quote is a pure function of its inputs: the engine holds no state and
// performs no I/O, so the same arguments always produce the same Quote.
package pricing

import (
	"math"
	"sort"
	"time"
)

// FarFutureDays stands in for the distance to an unknown departure date.
const FarFutureDays = 3650

type PricingType string

const (
	PricingTypeEarlyBird PricingType = "EarlyBird"
	PricingTypeStandard  PricingType = "Standard"
)

// Tier grants DiscountPercent to bookings made within MaxDaysSinceCreated days
// of the listing going live.
type Tier struct {
	MaxDaysSinceCreated int
	DiscountPercent     float64
}

// Rule is the early-bird decay curve.
type Rule struct {
	// MinDaysBeforeTour is the minimum distance to departure for any discount.
	MinDaysBeforeTour int
	Tiers             []Tier
}

// DefaultRule gives 25% in the first week after listing, 15% in the second,
// and nothing within 30 days of departure.
func DefaultRule() Rule {
	return Rule{
		MinDaysBeforeTour: 30,
		Tiers: []Tier{
			{MaxDaysSinceCreated: 7, DiscountPercent: 25},
			{MaxDaysSinceCreated: 14, DiscountPercent: 15},
		},
	}
}

type Quote struct {
	BasePrice        float64     `json:"base_price"`
	DiscountPercent  float64     `json:"discount_percent"`
	FinalPrice       float64     `json:"final_price"`
	IsEarlyBird      bool        `json:"is_early_bird"`
	PricingType      PricingType `json:"pricing_type"`
	DaysSinceCreated int         `json:"days_since_created"`
	DaysUntilTour    int         `json:"days_until_tour"`
}

type Engine struct {
	rule Rule
	loc  *time.Location
}

// NewEngine returns an engine that counts calendar days in loc.
func NewEngine(rule Rule, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	tiers := append([]Tier(nil), rule.Tiers...)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MaxDaysSinceCreated < tiers[j].MaxDaysSinceCreated
	})
	rule.Tiers = tiers
	return &Engine{rule: rule, loc: loc}
}

// Quote prices one unit of basePrice. A nil departure means no slot has been
// chosen; such bookings are always priced at the standard rate.
func (e *Engine) Quote(basePrice float64, departure *time.Time, listingCreated, evaluatedAt time.Time) Quote {
	if basePrice < 0 || math.IsNaN(basePrice) {
		basePrice = 0
	}

	daysSinceCreated := DaysBetween(listingCreated, evaluatedAt, e.loc)
	if daysSinceCreated < 0 {
		daysSinceCreated = 0
	}

	daysUntilTour := FarFutureDays
	if departure != nil {
		daysUntilTour = DaysBetween(evaluatedAt, *departure, e.loc)
	}

	q := Quote{
		BasePrice:        RoundMoney(basePrice),
		FinalPrice:       RoundMoney(basePrice),
		PricingType:      PricingTypeStandard,
		DaysSinceCreated: daysSinceCreated,
		DaysUntilTour:    daysUntilTour,
	}
	if departure == nil {
		return q
	}

	discount := e.discount(daysSinceCreated, daysUntilTour)
	if discount <= 0 {
		return q
	}

	q.DiscountPercent = discount
	q.IsEarlyBird = true
	q.PricingType = PricingTypeEarlyBird
	q.FinalPrice = RoundMoney(basePrice * (100 - discount) / 100)
	return q
}

func (e *Engine) discount(daysSinceCreated, daysUntilTour int) float64 {
	if daysUntilTour < e.rule.MinDaysBeforeTour {
		return 0
	}
	for _, tier := range e.rule.Tiers {
		if daysSinceCreated <= tier.MaxDaysSinceCreated {
			return clampPercent(tier.DiscountPercent)
		}
	}
	return 0
}

// DaysBetween counts calendar days from -> to in loc. It is negative when to is earlier.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	f := from.In(loc)
	t := to.In(loc)
	fromDate := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate).Hours() / 24)
}

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// OnCalendarDay reads a stored date column (midnight UTC) as the start of
// that calendar day in loc.
func OnCalendarDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}
