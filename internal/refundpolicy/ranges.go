package refundpolicy

import "time"

// DayRange is the half-open interval [Start, End) of whole days before
// departure. A nil End extends the range without bound.
type DayRange struct {
	Start int
	End   *int
}

// NewDayRange converts an inclusive [minDays, maxDays] band into half-open form.
func NewDayRange(minDays int, maxDays *int) DayRange {
	if maxDays == nil {
		return DayRange{Start: minDays}
	}
	end := *maxDays + 1
	return DayRange{Start: minDays, End: &end}
}

func (r DayRange) Contains(days int) bool {
	return days >= r.Start && (r.End == nil || days < *r.End)
}

func (r DayRange) Empty() bool {
	return r.End != nil && *r.End <= r.Start
}

// Overlaps reports whether the two ranges share at least one day.
func (r DayRange) Overlaps(o DayRange) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	startsBeforeOtherEnds := o.End == nil || r.Start < *o.End
	otherStartsBeforeEnd := r.End == nil || o.Start < *r.End
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// Window is the half-open effective period [From, To). A nil To never expires.
type Window struct {
	From time.Time
	To   *time.Time
}

func (w Window) Contains(at time.Time) bool {
	return !at.Before(w.From) && (w.To == nil || at.Before(*w.To))
}

func (w Window) Overlaps(o Window) bool {
	startsBeforeOtherEnds := o.To == nil || w.From.Before(*o.To)
	otherStartsBeforeEnd := w.To == nil || o.From.Before(*w.To)
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// Conflicts reports whether two policies could both match the same
// (trigger, day count, instant). Inactive or deleted policies never conflict.
func Conflicts(a, b *RefundPolicy) bool {
	if a.TriggerType != b.TriggerType {
		return false
	}
	if !a.IsActive || !b.IsActive || a.DeletedAt != nil || b.DeletedAt != nil {
		return false
	}
	return a.DayRange().Overlaps(b.DayRange()) && a.Window().Overlaps(b.Window())
}
