package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/shared/transaction"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no booking matches the lookup.
	ErrNotFound = errors.New("bookings: booking not found")
	// ErrVersionConflict is returned by Update when the row changed since it was read.
	ErrVersionConflict = errors.New("bookings: version conflict")
)

// Repository interface defines the contract for booking persistence.
// Update never writes price columns, which keeps totals immutable.
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByCode(ctx context.Context, code string) (*Booking, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*Booking, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	SetPaymentURL(ctx context.Context, id uuid.UUID, url string) error

	// Update writes lifecycle fields and bumps the version, failing with
	// ErrVersionConflict unless the stored version equals booking.Version.
	// On success booking.Version holds the new version.
	Update(ctx context.Context, booking *Booking) error

	ListByCustomer(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
	ListByOperation(ctx context.Context, operationID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID, statuses ...Status) ([]Booking, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error)

	// ActiveHolds sums the guests of unexpired, uncommitted Pending bookings on res.
	ActiveHolds(ctx context.Context, res capacity.Resource, at time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	if err := transaction.Conn(ctx, r.db).Create(booking).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Booking, error) {
	return r.first(ctx, "booking_code = ?", code)
}

func (r *repository) GetByOrderCode(ctx context.Context, orderCode string) (*Booking, error) {
	return r.first(ctx, "payment_order_code = ?", orderCode)
}

func (r *repository) first(ctx context.Context, where string, arg interface{}) (*Booking, error) {
	var booking Booking
	if err := transaction.Conn(ctx, r.db).Where(where, arg).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := transaction.Conn(ctx, r.db).Model(&Booking{}).
		Where("booking_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check booking code: %w", err)
	}
	return count > 0, nil
}

func (r *repository) SetPaymentURL(ctx context.Context, id uuid.UUID, url string) error {
	err := transaction.Conn(ctx, r.db).Model(&Booking{}).
		Where("id = ?", id).
		Update("payment_url", url).Error
	if err != nil {
		return fmt.Errorf("failed to store payment url: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, booking *Booking) error {
	now := time.Now()
	result := transaction.Conn(ctx, r.db).Model(&Booking{}).
		Where("id = ? AND version = ?", booking.ID, booking.Version).
		Updates(map[string]interface{}{
			"status":              booking.Status,
			"capacity_committed":  booking.CapacityCommitted,
			"reserved_until":      booking.ReservedUntil,
			"confirmed_at":        booking.ConfirmedAt,
			"cancelled_at":        booking.CancelledAt,
			"completed_at":        booking.CompletedAt,
			"cancellation_reason": booking.CancellationReason,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	booking.Version++
	booking.UpdatedAt = now
	return nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return r.page(ctx, query, "customer_id = ?", customerID)
}

func (r *repository) ListByOperation(ctx context.Context, operationID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return r.page(ctx, query, "operation_id = ?", operationID)
}

func (r *repository) page(ctx context.Context, query BookingListQuery, where string, arg interface{}) ([]Booking, int64, error) {
	query.normalize()

	baseQuery := transaction.Conn(ctx, r.db).Model(&Booking{}).Where(where, arg)
	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var bookings []Booking
	err := baseQuery.
		Order("created_at DESC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, totalCount, nil
}

func (r *repository) ListBySlot(ctx context.Context, slotID uuid.UUID, statuses ...Status) ([]Booking, error) {
	query := transaction.Conn(ctx, r.db).Where("slot_id = ?", slotID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var bookings []Booking
	if err := query.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list slot bookings: %w", err)
	}
	return bookings, nil
}

func (r *repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := transaction.Conn(ctx, r.db).
		Where("status = ? AND reserved_until IS NOT NULL AND reserved_until <= ?", StatusPending, now).
		Order("reserved_until ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	return bookings, nil
}

func (r *repository) ActiveHolds(ctx context.Context, res capacity.Resource, at time.Time) (int, error) {
	query := transaction.Conn(ctx, r.db).Model(&Booking{}).
		Where("status = ? AND capacity_committed = ? AND reserved_until > ?", StatusPending, false, at)
	if res.SlotID != nil {
		query = query.Where("slot_id = ?", *res.SlotID)
	} else {
		query = query.Where("operation_id = ? AND slot_id IS NULL", res.OperationID)
	}

	var held int
	if err := query.Select("COALESCE(SUM(number_of_guests), 0)").Scan(&held).Error; err != nil {
		return 0, fmt.Errorf("failed to sum active holds: %w", err)
	}
	return held, nil
}
