package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/internal/shared/transaction"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrOperationNotFound is returned when the operation id is unknown.
	ErrOperationNotFound = errors.New("capacity: operation not found")
	// ErrSlotNotFound is returned when the slot id is unknown or belongs to another operation.
	ErrSlotNotFound = errors.New("capacity: slot not found")
	// ErrDuplicateSlot is returned when the operation already departs on that date.
	ErrDuplicateSlot = errors.New("capacity: slot already exists for that date")
	// ErrVersionConflict is reported once every compare-and-swap attempt lost its race.
	ErrVersionConflict = errors.New("capacity: version conflict")
)

// Repository interface defines the contract for capacity data operations.
// Counter writes go exclusively through CompareAndSwapCounter.
type Repository interface {
	CreateOperation(ctx context.Context, op *TourOperation) error
	GetOperation(ctx context.Context, id uuid.UUID) (*TourOperation, error)
	SetOperationFlags(ctx context.Context, id uuid.UUID, isActive, isPublished bool) error

	CreateSlots(ctx context.Context, slots []TourSlot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*TourSlot, error)
	ListSlots(ctx context.Context, operationID uuid.UUID, from *time.Time) ([]TourSlot, error)
	CountSlots(ctx context.Context, operationID uuid.UUID) (int64, error)
	// ListDepartedSlots returns open slots whose departure date is before the given date.
	ListDepartedSlots(ctx context.Context, before time.Time, limit int) ([]TourSlot, error)

	LoadCounter(ctx context.Context, res Resource) (*Counter, error)
	// CompareAndSwapCounter writes current and status (slots only) and bumps
	// the version, but only while the stored version equals expectedVersion.
	// It returns false when another writer got there first.
	CompareAndSwapCounter(ctx context.Context, res Resource, expectedVersion int64, current int, status SlotStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOperation(ctx context.Context, op *TourOperation) error {
	if err := transaction.Conn(ctx, r.db).Create(op).Error; err != nil {
		return fmt.Errorf("failed to create tour operation: %w", err)
	}
	return nil
}

func (r *repository) GetOperation(ctx context.Context, id uuid.UUID) (*TourOperation, error) {
	var op TourOperation
	if err := transaction.Conn(ctx, r.db).First(&op, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to get tour operation: %w", err)
	}
	return &op, nil
}

func (r *repository) SetOperationFlags(ctx context.Context, id uuid.UUID, isActive, isPublished bool) error {
	result := transaction.Conn(ctx, r.db).Model(&TourOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":    isActive,
			"is_published": isPublished,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update tour operation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOperationNotFound
	}
	return nil
}

func (r *repository) CreateSlots(ctx context.Context, slots []TourSlot) error {
	if len(slots) == 0 {
		return nil
	}
	if err := transaction.Conn(ctx, r.db).Create(&slots).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create tour slots: %w", err)
	}
	return nil
}

func (r *repository) GetSlot(ctx context.Context, id uuid.UUID) (*TourSlot, error) {
	var slot TourSlot
	if err := transaction.Conn(ctx, r.db).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get tour slot: %w", err)
	}
	return &slot, nil
}

func (r *repository) ListSlots(ctx context.Context, operationID uuid.UUID, from *time.Time) ([]TourSlot, error) {
	query := transaction.Conn(ctx, r.db).Where("operation_id = ?", operationID)
	if from != nil {
		query = query.Where("departure_date >= ?", *from)
	}

	var slots []TourSlot
	if err := query.Order("departure_date ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list tour slots: %w", err)
	}
	return slots, nil
}

func (r *repository) CountSlots(ctx context.Context, operationID uuid.UUID) (int64, error) {
	var count int64
	err := transaction.Conn(ctx, r.db).Model(&TourSlot{}).
		Where("operation_id = ?", operationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tour slots: %w", err)
	}
	return count, nil
}

func (r *repository) ListDepartedSlots(ctx context.Context, before time.Time, limit int) ([]TourSlot, error) {
	var slots []TourSlot
	err := transaction.Conn(ctx, r.db).
		Where("departure_date < ? AND status IN ?", before,
			[]SlotStatus{SlotAvailable, SlotFullyBooked, SlotInProgress}).
		Order("departure_date ASC").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list departed slots: %w", err)
	}
	return slots, nil
}

func (r *repository) LoadCounter(ctx context.Context, res Resource) (*Counter, error) {
	conn := transaction.Conn(ctx, r.db)

	if res.SlotID != nil {
		var slot TourSlot
		err := conn.First(&slot, "id = ? AND operation_id = ?", *res.SlotID, res.OperationID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSlotNotFound
			}
			return nil, fmt.Errorf("failed to load slot counter: %w", err)
		}
		return slot.Counter(), nil
	}

	var op TourOperation
	if err := conn.First(&op, "id = ?", res.OperationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to load operation counter: %w", err)
	}
	return op.Counter(), nil
}

func (r *repository) CompareAndSwapCounter(ctx context.Context, res Resource, expectedVersion int64, current int, status SlotStatus) (bool, error) {
	conn := transaction.Conn(ctx, r.db)
	updates := map[string]interface{}{
		"current_bookings": current,
		"version":          gorm.Expr("version + 1"),
		"updated_at":       time.Now(),
	}

	var result *gorm.DB
	if res.SlotID != nil {
		updates["status"] = status
		result = conn.Model(&TourSlot{}).
			Where("id = ? AND version = ?", *res.SlotID, expectedVersion).
			Updates(updates)
	} else {
		result = conn.Model(&TourOperation{}).
			Where("id = ? AND version = ?", res.OperationID, expectedVersion).
			Updates(updates)
	}
	if result.Error != nil {
		return false, fmt.Errorf("failed to write capacity counter: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
