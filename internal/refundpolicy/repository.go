package refundpolicy

import (
	"context"
	"errors"
	"fmt"

	"tourly/internal/shared/transaction"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no policy matches the requested id.
var ErrNotFound = errors.New("refundpolicy: not found")

// ListFilter narrows ListPolicies. Zero values mean "any".
type ListFilter struct {
	TriggerType    TriggerType
	ActiveOnly     bool
	IncludeDeleted bool
}

// Repository interface defines the contract for refund policy data operations
type Repository interface {
	Create(ctx context.Context, policy *RefundPolicy) error
	Update(ctx context.Context, policy *RefundPolicy) error
	GetByID(ctx context.Context, id uuid.UUID) (*RefundPolicy, error)
	List(ctx context.Context, filter ListFilter) ([]RefundPolicy, error)
	// ListActiveByTrigger returns active, non-deleted policies ordered by priority.
	ListActiveByTrigger(ctx context.Context, trigger TriggerType) ([]RefundPolicy, error)
	// LockTrigger serializes policy writes for trigger until the surrounding
	// transaction ends. Callers must be inside a transaction.
	LockTrigger(ctx context.Context, trigger TriggerType) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, policy *RefundPolicy) error {
	if err := transaction.Conn(ctx, r.db).Create(policy).Error; err != nil {
		return fmt.Errorf("failed to create refund policy: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, policy *RefundPolicy) error {
	result := transaction.Conn(ctx, r.db).Save(policy)
	if result.Error != nil {
		return fmt.Errorf("failed to update refund policy: %w", result.Error)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*RefundPolicy, error) {
	var policy RefundPolicy
	err := transaction.Conn(ctx, r.db).First(&policy, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refund policy: %w", err)
	}
	return &policy, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]RefundPolicy, error) {
	query := transaction.Conn(ctx, r.db).Model(&RefundPolicy{})
	if filter.TriggerType != "" {
		query = query.Where("trigger_type = ?", filter.TriggerType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if !filter.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}

	var policies []RefundPolicy
	if err := query.Order("trigger_type, priority, min_days_before_event DESC").Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list refund policies: %w", err)
	}
	return policies, nil
}

func (r *repository) ListActiveByTrigger(ctx context.Context, trigger TriggerType) ([]RefundPolicy, error) {
	var policies []RefundPolicy
	err := transaction.Conn(ctx, r.db).
		Where("trigger_type = ? AND is_active = ? AND deleted_at IS NULL", trigger, true).
		Order("priority ASC, min_days_before_event DESC").
		Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active refund policies: %w", err)
	}
	return policies, nil
}

func (r *repository) LockTrigger(ctx context.Context, trigger TriggerType) error {
	err := transaction.Conn(ctx, r.db).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "refund_policy:"+string(trigger)).Error
	if err != nil {
		return fmt.Errorf("failed to lock refund policies for %s: %w", trigger, err)
	}
	return nil
}
