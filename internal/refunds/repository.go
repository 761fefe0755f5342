package refunds

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
	ErrNotFound        = errors.New("refunds: refund not found")
	ErrVersionConflict = errors.New("refunds: version conflict")
)

// Repository interface defines the contract for refund persistence.
type Repository interface {
	Create(ctx context.Context, refund *TourBookingRefund) error
	GetByID(ctx context.Context, id uuid.UUID) (*TourBookingRefund, error)
	// Update writes the workflow fields, guarded by the row version.
	Update(ctx context.Context, refund *TourBookingRefund) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]TourBookingRefund, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, query RefundListQuery) ([]TourBookingRefund, int64, error)
	List(ctx context.Context, query RefundListQuery) ([]TourBookingRefund, int64, error)

	AddTimeline(ctx context.Context, entry *RefundTimelineEntry) error
	ListTimeline(ctx context.Context, refundID uuid.UUID) ([]RefundTimelineEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, refund *TourBookingRefund) error {
	if refund.Version == 0 {
		refund.Version = 1
	}
	if err := transaction.Conn(ctx, r.db).Create(refund).Error; err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*TourBookingRefund, error) {
	var refund TourBookingRefund
	if err := transaction.Conn(ctx, r.db).Where("id = ?", id).First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	return &refund, nil
}

func (r *repository) Update(ctx context.Context, refund *TourBookingRefund) error {
	now := time.Now()
	result := transaction.Conn(ctx, r.db).Model(&TourBookingRefund{}).
		Where("id = ? AND version = ?", refund.ID, refund.Version).
		Updates(map[string]interface{}{
			"status":                refund.Status,
			"approved_amount":       refund.ApprovedAmount,
			"admin_note":            refund.AdminNote,
			"processed_by":          refund.ProcessedBy,
			"transaction_reference": refund.TransactionReference,
			"processed_at":          refund.ProcessedAt,
			"completed_at":          refund.CompletedAt,
			"cancelled_at":          refund.CancelledAt,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update refund: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	refund.Version++
	refund.UpdatedAt = now
	return nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]TourBookingRefund, error) {
	var refunds []TourBookingRefund
	err := transaction.Conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("requested_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list booking refunds: %w", err)
	}
	return refunds, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, query RefundListQuery) ([]TourBookingRefund, int64, error) {
	return r.page(ctx, query, transaction.Conn(ctx, r.db).Model(&TourBookingRefund{}).Where("customer_id = ?", customerID))
}

func (r *repository) List(ctx context.Context, query RefundListQuery) ([]TourBookingRefund, int64, error) {
	return r.page(ctx, query, transaction.Conn(ctx, r.db).Model(&TourBookingRefund{}))
}

func (r *repository) page(ctx context.Context, query RefundListQuery, baseQuery *gorm.DB) ([]TourBookingRefund, int64, error) {
	query.normalize()
	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count refunds: %w", err)
	}

	var refunds []TourBookingRefund
	err := baseQuery.
		Order("requested_at DESC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&refunds).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list refunds: %w", err)
	}
	return refunds, totalCount, nil
}

func (r *repository) AddTimeline(ctx context.Context, entry *RefundTimelineEntry) error {
	if err := transaction.Conn(ctx, r.db).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write refund timeline: %w", err)
	}
	return nil
}

func (r *repository) ListTimeline(ctx context.Context, refundID uuid.UUID) ([]RefundTimelineEntry, error) {
	var entries []RefundTimelineEntry
	err := transaction.Conn(ctx, r.db).
		Where("refund_id = ?", refundID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refund timeline: %w", err)
	}
	return entries, nil
}
