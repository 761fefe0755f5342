package refundpolicy

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestDayRangeContainsInclusiveBounds(t *testing.T) {
	r := NewDayRange(3, intPtr(6))
	for days, want := range map[int]bool{2: false, 3: true, 5: true, 6: true, 7: false} {
		if got := r.Contains(days); got != want {
			t.Errorf("Contains(%d) = %v, want %v", days, got, want)
		}
	}

	open := NewDayRange(7, nil)
	if open.Contains(6) || !open.Contains(7) || !open.Contains(10000) {
		t.Error("open-ended range boundaries are wrong")
	}
}

func TestDayRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b DayRange
		want bool
	}{
		{"adjacent bands", NewDayRange(3, intPtr(6)), NewDayRange(7, nil), false},
		{"shared endpoint", NewDayRange(3, intPtr(7)), NewDayRange(7, nil), true},
		{"nested", NewDayRange(0, intPtr(30)), NewDayRange(10, intPtr(12)), true},
		{"disjoint", NewDayRange(0, intPtr(2)), NewDayRange(5, intPtr(9)), false},
		{"both open", NewDayRange(3, nil), NewDayRange(100, nil), true},
		{"open after closed", NewDayRange(0, intPtr(99)), NewDayRange(100, nil), false},
		{"open covers closed", NewDayRange(0, nil), NewDayRange(50, intPtr(60)), true},
		{"single day equal", NewDayRange(5, intPtr(5)), NewDayRange(5, intPtr(5)), true},
		{"single day apart", NewDayRange(5, intPtr(5)), NewDayRange(6, intPtr(6)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("b.Overlaps(a) = %v, want %v (not symmetric)", got, tt.want)
			}
		})
	}
}

func TestEmptyRangeNeverOverlaps(t *testing.T) {
	empty := NewDayRange(5, intPtr(3))
	if !empty.Empty() {
		t.Fatal("max below min should be empty")
	}
	if empty.Overlaps(NewDayRange(0, nil)) {
		t.Fatal("empty range overlapped")
	}
}

func TestWindowOverlaps(t *testing.T) {
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	janToFeb := Window{From: jan, To: &feb}
	febOn := Window{From: feb}
	janOn := Window{From: jan}
	febToMar := Window{From: feb, To: &mar}

	if janToFeb.Overlaps(febOn) {
		t.Error("a window ending when the next begins must not overlap")
	}
	if !janOn.Overlaps(febToMar) {
		t.Error("open window should overlap a later bounded one")
	}
	if !janToFeb.Contains(jan) || janToFeb.Contains(feb) {
		t.Error("window bounds should be [From, To)")
	}
}

func TestConflictsRequiresSameTriggerAndBothOverlaps(t *testing.T) {
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	base := RefundPolicy{TriggerType: TriggerUserCancellation, MinDaysBeforeEvent: 7, EffectiveFrom: jan, EffectiveTo: &jun, IsActive: true}

	other := base
	other.MinDaysBeforeEvent = 10
	if !Conflicts(&base, &other) {
		t.Fatal("overlapping ranges in overlapping windows must conflict")
	}

	nextVersion := other
	nextVersion.EffectiveFrom = jun
	nextVersion.EffectiveTo = nil
	if Conflicts(&base, &nextVersion) {
		t.Fatal("a later version should not conflict with the one it replaces")
	}

	company := other
	company.TriggerType = TriggerCompanyCancellation
	if Conflicts(&base, &company) {
		t.Fatal("different triggers never conflict")
	}

	inactive := other
	inactive.IsActive = false
	if Conflicts(&base, &inactive) {
		t.Fatal("inactive policies never conflict")
	}
}
