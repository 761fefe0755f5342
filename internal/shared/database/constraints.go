package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the partial indexes the hot booking queries rely on.
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		// Hold-expiry sweep.
		`CREATE INDEX IF NOT EXISTS idx_tour_bookings_pending_expiry
		ON tour_bookings (reserved_until)
		WHERE status = 'Pending'`,

		// Active-hold sums per slot during CheckAndHold.
		`CREATE INDEX IF NOT EXISTS idx_tour_bookings_pending_slot
		ON tour_bookings (slot_id)
		WHERE status = 'Pending' AND capacity_committed = false`,

		// Slotless operations draw on the operation counter.
		`CREATE INDEX IF NOT EXISTS idx_tour_bookings_pending_operation
		ON tour_bookings (operation_id)
		WHERE status = 'Pending' AND capacity_committed = false AND slot_id IS NULL`,

		// At most one refund per booking may be awaiting review.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tour_booking_refunds_one_pending
		ON tour_booking_refunds (booking_id)
		WHERE status = 'Pending'`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
