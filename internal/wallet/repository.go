package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/internal/shared/transaction"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEntryNotFound is returned when a booking has no entry of the requested type.
var ErrEntryNotFound = errors.New("wallet: entry not found")

// ErrWalletNotFound is returned when a balance update targets an unknown wallet.
var ErrWalletNotFound = errors.New("wallet: wallet not found")

type Repository interface {
	GetOrCreate(ctx context.Context, guideID uuid.UUID) (*GuideWallet, error)
	FindEntry(ctx context.Context, bookingID uuid.UUID, entryType EntryType) (*WalletEntry, error)
	AddEntry(ctx context.Context, entry *WalletEntry) error
	// AdjustBalances adds the deltas to the stored balances in one statement.
	AdjustBalances(ctx context.Context, walletID uuid.UUID, heldDelta, availableDelta float64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(ctx context.Context, guideID uuid.UUID) (*GuideWallet, error) {
	conn := transaction.Conn(ctx, r.db)

	w := GuideWallet{ID: uuid.New(), GuideID: guideID}
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guide_id"}},
		DoNothing: true,
	}).Create(&w).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	var wallet GuideWallet
	if err := conn.First(&wallet, "guide_id = ?", guideID).Error; err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &wallet, nil
}

func (r *repository) FindEntry(ctx context.Context, bookingID uuid.UUID, entryType EntryType) (*WalletEntry, error) {
	var entry WalletEntry
	err := transaction.Conn(ctx, r.db).
		First(&entry, "booking_id = ? AND entry_type = ?", bookingID, entryType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find wallet entry: %w", err)
	}
	return &entry, nil
}

func (r *repository) AddEntry(ctx context.Context, entry *WalletEntry) error {
	if err := transaction.Conn(ctx, r.db).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add wallet entry: %w", err)
	}
	return nil
}

func (r *repository) AdjustBalances(ctx context.Context, walletID uuid.UUID, heldDelta, availableDelta float64) error {
	result := transaction.Conn(ctx, r.db).Model(&GuideWallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"held_balance":      gorm.Expr("held_balance + ?", heldDelta),
			"available_balance": gorm.Expr("available_balance + ?", availableDelta),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to adjust wallet balances: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
