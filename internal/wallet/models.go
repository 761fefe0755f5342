package wallet

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryHoldCredit   EntryType = "HOLD_CREDIT"
	EntryHoldReversal EntryType = "HOLD_REVERSAL"
	EntryHoldRelease  EntryType = "HOLD_RELEASE"
)

// GuideWallet holds a tour operator's revenue. Money from confirmed bookings
// sits in HeldBalance until the departure completes.
type GuideWallet struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GuideID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"guide_id"`
	HeldBalance      float64   `gorm:"type:decimal(18,2);not null;default:0" json:"held_balance"`
	AvailableBalance float64   `gorm:"type:decimal(18,2);not null;default:0" json:"available_balance"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (GuideWallet) TableName() string {
	return "guide_wallets"
}

// WalletEntry records one balance movement. The unique (booking, type) pair
// makes every movement idempotent per booking.
type WalletEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WalletID  uuid.UUID `gorm:"type:uuid;not null;index" json:"wallet_id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_entries_booking_type" json:"booking_id"`
	EntryType EntryType `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_entries_booking_type" json:"entry_type"`
	Amount    float64   `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (WalletEntry) TableName() string {
	return "wallet_entries"
}
