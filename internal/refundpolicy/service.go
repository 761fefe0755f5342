package refundpolicy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"tourly/internal/pricing"
	"tourly/internal/shared/apperr"
	"tourly/internal/shared/transaction"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service interface defines the contract for the refund policy table
type Service interface {
	CreatePolicy(ctx context.Context, actorID uuid.UUID, req PolicyRequest) (*RefundPolicy, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, req PolicyRequest) (*RefundPolicy, error)
	DeletePolicy(ctx context.Context, id uuid.UUID) error
	GetPolicy(ctx context.Context, id uuid.UUID) (*RefundPolicy, error)
	ListPolicies(ctx context.Context, filter ListFilter) ([]RefundPolicy, error)

	// FindApplicablePolicy returns nil, nil when no band covers daysBeforeEvent.
	FindApplicablePolicy(ctx context.Context, trigger TriggerType, daysBeforeEvent int, at time.Time) (*RefundPolicy, error)
	CalculateRefund(ctx context.Context, originalAmount float64, trigger TriggerType, daysBeforeEvent int) (*RefundCalculation, error)

	SeedDefaults(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	tx       transaction.Transactor
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, tx transaction.Transactor) Service {
	v := validator.New()
	v.SetTagName("binding")
	return &service{
		repo:     repo,
		tx:       tx,
		validate: v,
		now:      time.Now,
	}
}

// NewServiceWithClock is NewService with an injectable clock.
func NewServiceWithClock(repo Repository, tx transaction.Transactor, now func() time.Time) Service {
	s := NewService(repo, tx).(*service)
	s.now = now
	return s
}

func (s *service) CreatePolicy(ctx context.Context, actorID uuid.UUID, req PolicyRequest) (*RefundPolicy, error) {
	policy := &RefundPolicy{
		ID:        uuid.New(),
		IsActive:  true,
		CreatedBy: &actorID,
	}
	s.apply(policy, req)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.validatePolicy(ctx, policy); err != nil {
			return err
		}
		return s.repo.Create(ctx, policy)
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *service) UpdatePolicy(ctx context.Context, id uuid.UUID, req PolicyRequest) (*RefundPolicy, error) {
	var updated *RefundPolicy
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.GetPolicy(ctx, id)
		if err != nil {
			return err
		}
		if policy.DeletedAt != nil {
			return apperr.InvalidState("refund policy %s has been deleted", id)
		}

		s.apply(policy, req)
		if err := s.validatePolicy(ctx, policy); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, policy); err != nil {
			return err
		}
		updated = policy
		return nil
	})
	return updated, err
}

// DeletePolicy soft-deletes: the row stays for audit but never matches again.
func (s *service) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.GetPolicy(ctx, id)
		if err != nil {
			return err
		}
		if policy.DeletedAt != nil {
			return nil
		}
		now := s.now()
		policy.IsActive = false
		policy.DeletedAt = &now
		return s.repo.Update(ctx, policy)
	})
}

func (s *service) GetPolicy(ctx context.Context, id uuid.UUID) (*RefundPolicy, error) {
	policy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("refund policy")
		}
		return nil, err
	}
	return policy, nil
}

func (s *service) ListPolicies(ctx context.Context, filter ListFilter) ([]RefundPolicy, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) FindApplicablePolicy(ctx context.Context, trigger TriggerType, daysBeforeEvent int, at time.Time) (*RefundPolicy, error) {
	if !trigger.IsValid() {
		return nil, apperr.Validation("unknown refund trigger type %q", trigger)
	}

	candidates, err := s.repo.ListActiveByTrigger(ctx, trigger)
	if err != nil {
		return nil, err
	}

	var matches []RefundPolicy
	for i := range candidates {
		if candidates[i].Applies(daysBeforeEvent, at) {
			matches = append(matches, candidates[i])
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority < matches[j].Priority
	})
	return &matches[0], nil
}

func (s *service) CalculateRefund(ctx context.Context, originalAmount float64, trigger TriggerType, daysBeforeEvent int) (*RefundCalculation, error) {
	policy, err := s.FindApplicablePolicy(ctx, trigger, daysBeforeEvent, s.now())
	if err != nil {
		return nil, err
	}
	calc := Calculate(policy, originalAmount, trigger, daysBeforeEvent)
	return &calc, nil
}

// Calculate applies policy to originalAmount. A nil policy yields an ineligible result.
func Calculate(policy *RefundPolicy, originalAmount float64, trigger TriggerType, daysBeforeEvent int) RefundCalculation {
	amount := math.Max(0, originalAmount)
	calc := RefundCalculation{
		TriggerType:     trigger,
		DaysBeforeEvent: daysBeforeEvent,
		OriginalAmount:  pricing.RoundMoney(amount),
	}

	if daysBeforeEvent < 0 {
		calc.Reason = "the tour has already departed"
		return calc
	}
	if policy == nil {
		calc.Reason = fmt.Sprintf("no refund policy covers a %s %d day(s) before departure", trigger, daysBeforeEvent)
		return calc
	}

	id := policy.ID
	calc.Eligible = true
	calc.PolicyID = &id
	calc.PolicyName = policy.Name
	calc.RefundPercentage = policy.RefundPercentage
	calc.RefundBeforeFee = pricing.RoundMoney(amount * policy.RefundPercentage / 100)
	calc.ProcessingFee = pricing.RoundMoney(policy.ProcessingFee + amount*policy.ProcessingFeePercentage/100)
	calc.NetRefund = pricing.RoundMoney(math.Max(0, calc.RefundBeforeFee-calc.ProcessingFee))
	return calc
}

// SeedDefaults installs the stock policy set when the table is empty.
func (s *service) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.repo.List(ctx, ListFilter{IncludeDeleted: true})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	six := 6
	from := s.now()
	defaults := []RefundPolicy{
		{Name: "Full refund a week or more before departure", TriggerType: TriggerUserCancellation, MinDaysBeforeEvent: 7, RefundPercentage: 100, Priority: 1},
		{Name: "Half refund 3 to 6 days before departure", TriggerType: TriggerUserCancellation, MinDaysBeforeEvent: 3, MaxDaysBeforeEvent: &six, RefundPercentage: 50, Priority: 1},
		{Name: "Operator cancelled the tour", TriggerType: TriggerCompanyCancellation, MinDaysBeforeEvent: 0, RefundPercentage: 100, Priority: 1},
		{Name: "Booking could not be honoured", TriggerType: TriggerAutoCancellation, MinDaysBeforeEvent: 0, RefundPercentage: 100, Priority: 1},
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i := range defaults {
			p := defaults[i]
			p.ID = uuid.New()
			p.IsActive = true
			p.EffectiveFrom = from
			if err := s.repo.Create(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(defaults), nil
}

func (s *service) apply(policy *RefundPolicy, req PolicyRequest) {
	policy.TriggerType = req.TriggerType
	policy.Name = req.Name
	policy.Description = req.Description
	policy.MinDaysBeforeEvent = req.MinDaysBeforeEvent
	policy.MaxDaysBeforeEvent = req.MaxDaysBeforeEvent
	policy.RefundPercentage = req.RefundPercentage
	policy.ProcessingFee = req.ProcessingFee
	policy.ProcessingFeePercentage = req.ProcessingFeePercentage
	policy.Priority = req.Priority
	policy.EffectiveTo = req.EffectiveTo
	if req.EffectiveFrom != nil {
		policy.EffectiveFrom = *req.EffectiveFrom
	} else if policy.EffectiveFrom.IsZero() {
		policy.EffectiveFrom = s.now()
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}
}

// validatePolicy enforces the write-time rules, including the overlap check
// against every other live policy of the same trigger type. The check holds
// the trigger lock so concurrent writers cannot both pass it.
func (s *service) validatePolicy(ctx context.Context, policy *RefundPolicy) error {
	req := PolicyRequest{
		TriggerType:             policy.TriggerType,
		Name:                    policy.Name,
		Description:             policy.Description,
		MinDaysBeforeEvent:      policy.MinDaysBeforeEvent,
		MaxDaysBeforeEvent:      policy.MaxDaysBeforeEvent,
		RefundPercentage:        policy.RefundPercentage,
		ProcessingFee:           policy.ProcessingFee,
		ProcessingFeePercentage: policy.ProcessingFeePercentage,
		Priority:                policy.Priority,
	}
	if err := s.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid refund policy", err)
	}

	if policy.MaxDaysBeforeEvent != nil && *policy.MaxDaysBeforeEvent < policy.MinDaysBeforeEvent {
		return apperr.Validation("max_days_before_event (%d) must be >= min_days_before_event (%d)",
			*policy.MaxDaysBeforeEvent, policy.MinDaysBeforeEvent)
	}
	if policy.EffectiveTo != nil && !policy.EffectiveTo.After(policy.EffectiveFrom) {
		return apperr.Validation("effective_to must be after effective_from")
	}

	if !policy.IsActive {
		return nil
	}

	if err := s.repo.LockTrigger(ctx, policy.TriggerType); err != nil {
		return err
	}
	others, err := s.repo.ListActiveByTrigger(ctx, policy.TriggerType)
	if err != nil {
		return err
	}
	for i := range others {
		other := &others[i]
		if other.ID == policy.ID {
			continue
		}
		if Conflicts(policy, other) {
			return apperr.Validation("day range %s overlaps policy %q (%s) of the same trigger type",
				describeRange(policy), other.Name, describeRange(other))
		}
	}
	return nil
}

func describeRange(p *RefundPolicy) string {
	if p.MaxDaysBeforeEvent == nil {
		return fmt.Sprintf("[%d, +inf)", p.MinDaysBeforeEvent)
	}
	return fmt.Sprintf("[%d, %d]", p.MinDaysBeforeEvent, *p.MaxDaysBeforeEvent)
}
