package refundpolicy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tourly/internal/refundpolicy"
	"tourly/internal/shared/apperr"
	"tourly/internal/storage/memory"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func newPolicyService(t *testing.T, seed bool) (*memory.Store, refundpolicy.Service) {
	t.Helper()
	store := memory.New()
	svc := refundpolicy.NewServiceWithClock(store.RefundPolicies(), store, func() time.Time { return testNow })
	if seed {
		n, err := svc.SeedDefaults(context.Background())
		if err != nil || n != 4 {
			t.Fatalf("SeedDefaults() = %d, %v", n, err)
		}
	}
	return store, svc
}

func TestCalculateRefundAgainstDefaultPolicies(t *testing.T) {
	_, svc := newPolicyService(t, true)

	tests := []struct {
		name         string
		trigger      refundpolicy.TriggerType
		days         int
		wantEligible bool
		wantPercent  float64
		wantNet      float64
	}{
		{name: "ten days out", trigger: refundpolicy.TriggerUserCancellation, days: 10, wantEligible: true, wantPercent: 100, wantNet: 200},
		{name: "exactly seven days", trigger: refundpolicy.TriggerUserCancellation, days: 7, wantEligible: true, wantPercent: 100, wantNet: 200},
		{name: "six days", trigger: refundpolicy.TriggerUserCancellation, days: 6, wantEligible: true, wantPercent: 50, wantNet: 100},
		{name: "five days out", trigger: refundpolicy.TriggerUserCancellation, days: 5, wantEligible: true, wantPercent: 50, wantNet: 100},
		{name: "three days", trigger: refundpolicy.TriggerUserCancellation, days: 3, wantEligible: true, wantPercent: 50, wantNet: 100},
		{name: "two days", trigger: refundpolicy.TriggerUserCancellation, days: 2},
		{name: "already departed", trigger: refundpolicy.TriggerUserCancellation, days: -1},
		{name: "operator cancels on the day", trigger: refundpolicy.TriggerCompanyCancellation, days: 0, wantEligible: true, wantPercent: 100, wantNet: 200},
		{name: "automatic cancellation", trigger: refundpolicy.TriggerAutoCancellation, days: 40, wantEligible: true, wantPercent: 100, wantNet: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := svc.CalculateRefund(context.Background(), 200, tt.trigger, tt.days)
			if err != nil {
				t.Fatalf("CalculateRefund() error = %v", err)
			}
			if calc.Eligible != tt.wantEligible {
				t.Fatalf("eligible = %v (%s), want %v", calc.Eligible, calc.Reason, tt.wantEligible)
			}
			if !tt.wantEligible {
				if calc.NetRefund != 0 || calc.Reason == "" || calc.PolicyID != nil {
					t.Fatalf("ineligible calculation = %+v", calc)
				}
				return
			}
			if calc.RefundPercentage != tt.wantPercent || calc.NetRefund != tt.wantNet {
				t.Fatalf("calculation = %+v", calc)
			}
		})
	}

	if _, err := svc.CalculateRefund(context.Background(), 200, "Whim", 10); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown trigger error = %v", err)
	}
}

func TestCalculateRefundAppliesFees(t *testing.T) {
	ctx := context.Background()
	_, svc := newPolicyService(t, false)
	_, err := svc.CreatePolicy(ctx, uuid.New(), refundpolicy.PolicyRequest{
		TriggerType:             refundpolicy.TriggerUserCancellation,
		Name:                    "Partial with fees",
		MinDaysBeforeEvent:      0,
		RefundPercentage:        80,
		ProcessingFee:           5,
		ProcessingFeePercentage: 2,
		Priority:                1,
	})
	if err != nil {
		t.Fatalf("CreatePolicy() error = %v", err)
	}

	calc, err := svc.CalculateRefund(ctx, 100, refundpolicy.TriggerUserCancellation, 4)
	if err != nil {
		t.Fatalf("CalculateRefund() error = %v", err)
	}
	if calc.RefundBeforeFee != 80 || calc.ProcessingFee != 7 || calc.NetRefund != 73 {
		t.Fatalf("calculation = %+v", calc)
	}

	small, _ := svc.CalculateRefund(ctx, 5, refundpolicy.TriggerUserCancellation, 4)
	if small.NetRefund != 0 || !small.Eligible {
		t.Fatalf("fees larger than the refund must floor at zero, got %+v", small)
	}
}

func TestCreatePolicyValidation(t *testing.T) {
	inactive := false

	tests := []struct {
		name    string
		req     refundpolicy.PolicyRequest
		wantErr apperr.Kind
	}{
		{
			name:    "overlaps the seven day band",
			req:     refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerUserCancellation, Name: "overlap", MinDaysBeforeEvent: 5, MaxDaysBeforeEvent: intPtr(10), RefundPercentage: 70, Priority: 1},
			wantErr: apperr.KindValidation,
		},
		{
			name: "fills the gap below three days",
			req:  refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerUserCancellation, Name: "last minute", MinDaysBeforeEvent: 0, MaxDaysBeforeEvent: intPtr(2), RefundPercentage: 10, Priority: 1},
		},
		{
			name: "inactive policies may overlap",
			req:  refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerUserCancellation, Name: "draft", MinDaysBeforeEvent: 1, RefundPercentage: 90, Priority: 1, IsActive: &inactive},
		},
		{
			name:    "max below min",
			req:     refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerCompanyCancellation, Name: "inverted", MinDaysBeforeEvent: 9, MaxDaysBeforeEvent: intPtr(4), RefundPercentage: 100, Priority: 1},
			wantErr: apperr.KindValidation,
		},
		{
			name:    "percentage above 100",
			req:     refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerCompanyCancellation, Name: "generous", RefundPercentage: 120, Priority: 1},
			wantErr: apperr.KindValidation,
		},
		{
			name:    "priority out of range",
			req:     refundpolicy.PolicyRequest{TriggerType: refundpolicy.TriggerCompanyCancellation, Name: "no priority", RefundPercentage: 100},
			wantErr: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := newPolicyService(t, true)
			policy, err := svc.CreatePolicy(context.Background(), uuid.New(), tt.req)
			if tt.wantErr != "" {
				if !apperr.IsKind(err, tt.wantErr) {
					t.Fatalf("CreatePolicy() error = %v, want kind %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePolicy() error = %v", err)
			}
			if policy.CreatedBy == nil || !policy.EffectiveFrom.Equal(testNow) {
				t.Fatalf("created policy = %+v", policy)
			}
		})
	}
}

// lockRecorder notes the order of trigger locks and overlap reads.
type lockRecorder struct {
	refundpolicy.Repository
	mu    sync.Mutex
	calls []string
}

func (r *lockRecorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *lockRecorder) LockTrigger(ctx context.Context, trigger refundpolicy.TriggerType) error {
	r.record("lock:" + string(trigger))
	return r.Repository.LockTrigger(ctx, trigger)
}

func (r *lockRecorder) ListActiveByTrigger(ctx context.Context, trigger refundpolicy.TriggerType) ([]refundpolicy.RefundPolicy, error) {
	r.record("list:" + string(trigger))
	return r.Repository.ListActiveByTrigger(ctx, trigger)
}

func TestConcurrentOverlappingPoliciesAdmitOne(t *testing.T) {
	store := memory.New()
	repo := &lockRecorder{Repository: store.RefundPolicies()}
	svc := refundpolicy.NewServiceWithClock(repo, store, func() time.Time { return testNow })

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreatePolicy(context.Background(), uuid.New(), refundpolicy.PolicyRequest{
				TriggerType:        refundpolicy.TriggerCompanyCancellation,
				Name:               "full refund",
				MinDaysBeforeEvent: 0,
				MaxDaysBeforeEvent: intPtr(10),
				RefundPercentage:   100,
				Priority:           1,
			})
			switch {
			case err == nil:
				mu.Lock()
				created++
				mu.Unlock()
			case !apperr.IsKind(err, apperr.KindValidation):
				t.Errorf("CreatePolicy() error = %v, want overlap validation", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("created %d overlapping policies, want 1", created)
	}
	live, err := store.RefundPolicies().ListActiveByTrigger(context.Background(), refundpolicy.TriggerCompanyCancellation)
	if err != nil || len(live) != 1 {
		t.Fatalf("active policies = %d, %v; want 1", len(live), err)
	}

	if len(repo.calls) != 2*writers {
		t.Fatalf("recorded %d calls, want %d", len(repo.calls), 2*writers)
	}
	for i := 0; i < len(repo.calls); i += 2 {
		want := []string{"lock:" + string(refundpolicy.TriggerCompanyCancellation), "list:" + string(refundpolicy.TriggerCompanyCancellation)}
		if repo.calls[i] != want[0] || repo.calls[i+1] != want[1] {
			t.Fatalf("calls %d-%d = %v, want lock before list", i, i+1, repo.calls[i:i+2])
		}
	}
}

func TestDeletePolicyStopsMatching(t *testing.T) {
	ctx := context.Background()
	_, svc := newPolicyService(t, true)

	found, err := svc.FindApplicablePolicy(ctx, refundpolicy.TriggerCompanyCancellation, 3, testNow)
	if err != nil || found == nil {
		t.Fatalf("FindApplicablePolicy() = %v, %v", found, err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.DeletePolicy(ctx, found.ID); err != nil {
			t.Fatalf("DeletePolicy() error = %v", err)
		}
	}

	calc, err := svc.CalculateRefund(ctx, 100, refundpolicy.TriggerCompanyCancellation, 3)
	if err != nil || calc.Eligible {
		t.Fatalf("calculation after delete = %+v, %v", calc, err)
	}

	_, err = svc.UpdatePolicy(ctx, found.ID, refundpolicy.PolicyRequest{
		TriggerType: refundpolicy.TriggerCompanyCancellation, Name: "revive", RefundPercentage: 100, Priority: 1,
	})
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("updating a deleted policy error = %v", err)
	}

	deleted, err := svc.GetPolicy(ctx, found.ID)
	if err != nil || deleted.DeletedAt == nil || deleted.IsActive {
		t.Fatalf("soft-deleted policy = %+v, %v", deleted, err)
	}
	if _, err := svc.GetPolicy(ctx, uuid.New()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown policy error = %v", err)
	}
}

func TestFindApplicablePolicyPrefersLowerPriority(t *testing.T) {
	ctx := context.Background()
	store, svc := newPolicyService(t, false)

	// Written straight to the repository; the service would refuse the overlap.
	for _, p := range []refundpolicy.RefundPolicy{
		{ID: uuid.New(), TriggerType: refundpolicy.TriggerAutoCancellation, Name: "fallback", RefundPercentage: 50, Priority: 5, IsActive: true, EffectiveFrom: testNow.Add(-time.Hour)},
		{ID: uuid.New(), TriggerType: refundpolicy.TriggerAutoCancellation, Name: "preferred", RefundPercentage: 100, Priority: 2, IsActive: true, EffectiveFrom: testNow.Add(-time.Hour)},
		{ID: uuid.New(), TriggerType: refundpolicy.TriggerAutoCancellation, Name: "not yet", RefundPercentage: 100, Priority: 1, IsActive: true, EffectiveFrom: testNow.Add(time.Hour)},
	} {
		if err := store.RefundPolicies().Create(ctx, &p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	found, err := svc.FindApplicablePolicy(ctx, refundpolicy.TriggerAutoCancellation, 1, testNow)
	if err != nil {
		t.Fatalf("FindApplicablePolicy() error = %v", err)
	}
	if found == nil || found.Name != "preferred" {
		t.Fatalf("picked %+v, want the priority 2 policy", found)
	}

	later, _ := svc.FindApplicablePolicy(ctx, refundpolicy.TriggerAutoCancellation, 1, testNow.Add(2*time.Hour))
	if later == nil || later.Name != "not yet" {
		t.Fatalf("picked %+v once the future policy starts", later)
	}
}

func TestSeedDefaultsRunsOnce(t *testing.T) {
	_, svc := newPolicyService(t, true)
	n, err := svc.SeedDefaults(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second SeedDefaults() = %d, %v", n, err)
	}
	all, err := svc.ListPolicies(context.Background(), refundpolicy.ListFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("ListPolicies() = %d policies, %v", len(all), err)
	}
}
