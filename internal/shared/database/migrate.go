package database

import (
	"fmt"

	"tourly/internal/bookings"
	"tourly/internal/capacity"
	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"
	"tourly/internal/wallet"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}
	err := db.AutoMigrate(
		&capacity.TourOperation{},
		&capacity.TourSlot{},
		&bookings.Booking{},
		&refundpolicy.RefundPolicy{},
		&refunds.TourBookingRefund{},
		&refunds.RefundTimelineEntry{},
		&wallet.GuideWallet{},
		&wallet.WalletEntry{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
