package wallet

import (
	"context"
	"errors"

	"tourly/internal/pricing"
	"tourly/internal/shared/transaction"

	"github.com/google/uuid"
)

// Service moves booking revenue through a guide's wallet. Every method is
// idempotent per booking.
type Service interface {
	// CreditHeld adds a confirmed booking's total to the held balance.
	CreditHeld(ctx context.Context, guideID, bookingID uuid.UUID, amount float64) error
	// ReverseHeld takes back a held credit when the booking is cancelled or refunded.
	ReverseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error
	// ReleaseHeld moves a held credit to the available balance once the tour ran.
	ReleaseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error
	GetWallet(ctx context.Context, guideID uuid.UUID) (*GuideWallet, error)
}

type service struct {
	repo Repository
	tx   transaction.Transactor
}

func NewService(repo Repository, tx transaction.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (s *service) CreditHeld(ctx context.Context, guideID, bookingID uuid.UUID, amount float64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		done, err := s.hasEntry(ctx, bookingID, EntryHoldCredit)
		if err != nil || done {
			return err
		}

		w, err := s.repo.GetOrCreate(ctx, guideID)
		if err != nil {
			return err
		}
		amount = pricing.RoundMoney(amount)
		if err := s.repo.AddEntry(ctx, &WalletEntry{ID: uuid.New(), WalletID: w.ID, BookingID: bookingID, EntryType: EntryHoldCredit, Amount: amount}); err != nil {
			return err
		}
		return s.repo.AdjustBalances(ctx, w.ID, amount, 0)
	})
}

func (s *service) ReverseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error {
	return s.settle(ctx, guideID, bookingID, EntryHoldReversal, func(amount float64) (float64, float64) {
		return -amount, 0
	})
}

func (s *service) ReleaseHeld(ctx context.Context, guideID, bookingID uuid.UUID) error {
	return s.settle(ctx, guideID, bookingID, EntryHoldRelease, func(amount float64) (float64, float64) {
		return -amount, amount
	})
}

// settle closes a held credit exactly once. A booking that was never
// credited, or was already reversed or released, is left alone.
func (s *service) settle(ctx context.Context, guideID, bookingID uuid.UUID, entryType EntryType, deltas func(float64) (float64, float64)) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		credit, err := s.repo.FindEntry(ctx, bookingID, EntryHoldCredit)
		if errors.Is(err, ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, closing := range []EntryType{EntryHoldReversal, EntryHoldRelease} {
			done, err := s.hasEntry(ctx, bookingID, closing)
			if err != nil || done {
				return err
			}
		}

		w, err := s.repo.GetOrCreate(ctx, guideID)
		if err != nil {
			return err
		}
		if err := s.repo.AddEntry(ctx, &WalletEntry{ID: uuid.New(), WalletID: w.ID, BookingID: bookingID, EntryType: entryType, Amount: credit.Amount}); err != nil {
			return err
		}
		held, available := deltas(credit.Amount)
		return s.repo.AdjustBalances(ctx, w.ID, held, available)
	})
}

func (s *service) GetWallet(ctx context.Context, guideID uuid.UUID) (*GuideWallet, error) {
	return s.repo.GetOrCreate(ctx, guideID)
}

func (s *service) hasEntry(ctx context.Context, bookingID uuid.UUID, entryType EntryType) (bool, error) {
	_, err := s.repo.FindEntry(ctx, bookingID, entryType)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrEntryNotFound):
		return false, nil
	default:
		return false, err
	}
}
