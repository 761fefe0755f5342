package memory

import (
	"context"
	"time"

	"tourly/internal/wallet"

	"github.com/google/uuid"
)

type walletRepo struct {
	s *Store
}

func (r *walletRepo) GetOrCreate(ctx context.Context, guideID uuid.UUID) (*wallet.GuideWallet, error) {
	var w wallet.GuideWallet
	err := r.s.do(ctx, func() error {
		for _, existing := range r.s.wallets {
			if existing.GuideID == guideID {
				w = existing
				return nil
			}
		}
		now := time.Now()
		w = wallet.GuideWallet{ID: uuid.New(), GuideID: guideID, CreatedAt: now, UpdatedAt: now}
		r.s.wallets[w.ID] = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) FindEntry(ctx context.Context, bookingID uuid.UUID, entryType wallet.EntryType) (*wallet.WalletEntry, error) {
	var found *wallet.WalletEntry
	err := r.s.do(ctx, func() error {
		for i := range r.s.entries {
			if r.s.entries[i].BookingID == bookingID && r.s.entries[i].EntryType == entryType {
				e := r.s.entries[i]
				found = &e
				return nil
			}
		}
		return wallet.ErrEntryNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *walletRepo) AddEntry(ctx context.Context, entry *wallet.WalletEntry) error {
	return r.s.do(ctx, func() error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.CreatedAt = time.Now()
		r.s.entries = append(r.s.entries, *entry)
		return nil
	})
}

func (r *walletRepo) AdjustBalances(ctx context.Context, walletID uuid.UUID, heldDelta, availableDelta float64) error {
	return r.s.do(ctx, func() error {
		w, ok := r.s.wallets[walletID]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		w.HeldBalance += heldDelta
		w.AvailableBalance += availableDelta
		w.UpdatedAt = time.Now()
		r.s.wallets[walletID] = w
		return nil
	})
}
