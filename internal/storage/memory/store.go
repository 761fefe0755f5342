// Package memory is a process-local store behind the same repository
// interfaces as the GORM implementations. Transactions are serialized by one
// lock and rolled back by restoring a snapshot of every table.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"tourly/internal/bookings"
	"tourly/internal/capacity"
	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"
	"tourly/internal/shared/transaction"
	"tourly/internal/wallet"

	"github.com/google/uuid"
)

type txKey struct{}

type tables struct {
	operations map[uuid.UUID]capacity.TourOperation
	slots      map[uuid.UUID]capacity.TourSlot
	bookings   map[uuid.UUID]bookings.Booking
	policies   map[uuid.UUID]refundpolicy.RefundPolicy
	refunds    map[uuid.UUID]refunds.TourBookingRefund
	timeline   []refunds.RefundTimelineEntry
	wallets    map[uuid.UUID]wallet.GuideWallet
	entries    []wallet.WalletEntry
}

func (t tables) clone() tables {
	return tables{
		operations: maps.Clone(t.operations),
		slots:      maps.Clone(t.slots),
		bookings:   maps.Clone(t.bookings),
		policies:   maps.Clone(t.policies),
		refunds:    maps.Clone(t.refunds),
		timeline:   slices.Clone(t.timeline),
		wallets:    maps.Clone(t.wallets),
		entries:    slices.Clone(t.entries),
	}
}

type Store struct {
	mu sync.Mutex
	tables
}

func New() *Store {
	return &Store{tables: tables{
		operations: make(map[uuid.UUID]capacity.TourOperation),
		slots:      make(map[uuid.UUID]capacity.TourSlot),
		bookings:   make(map[uuid.UUID]bookings.Booking),
		policies:   make(map[uuid.UUID]refundpolicy.RefundPolicy),
		refunds:    make(map[uuid.UUID]refunds.TourBookingRefund),
		wallets:    make(map[uuid.UUID]wallet.GuideWallet),
	}}
}

// WithinTransaction holds the store lock for the whole of fn. Nested calls
// join the outer transaction. Commit hooks run after the lock is released.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	return transaction.RunWithCommitHooks(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		snapshot := s.tables.clone()
		if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
			s.tables = snapshot
			return err
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// do runs fn under the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) Capacity() capacity.Repository {
	return &capacityRepo{s}
}

func (s *Store) Bookings() bookings.Repository {
	return &bookingRepo{s}
}

func (s *Store) RefundPolicies() refundpolicy.Repository {
	return &policyRepo{s}
}

func (s *Store) Refunds() refunds.Repository {
	return &refundRepo{s}
}

func (s *Store) Wallets() wallet.Repository {
	return &walletRepo{s}
}

// page returns the requested page of items, which must already be sorted.
func page[T any](items []T, pageNum, limit int) []T {
	start := (pageNum - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}
