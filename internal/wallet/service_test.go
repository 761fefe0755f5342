package wallet_test

import (
	"context"
	"errors"
	"testing"

	"tourly/internal/storage/memory"
	"tourly/internal/wallet"

	"github.com/google/uuid"
)

func TestWalletMovementsAreIdempotentPerBooking(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := wallet.NewService(store.Wallets(), store)
	guide := uuid.New()
	cancelled, completed, neverPaid := uuid.New(), uuid.New(), uuid.New()

	steps := []struct {
		name          string
		run           func() error
		wantHeld      float64
		wantAvailable float64
	}{
		{name: "credit", run: func() error { return svc.CreditHeld(ctx, guide, cancelled, 120.004) }, wantHeld: 120},
		{name: "repeat credit", run: func() error { return svc.CreditHeld(ctx, guide, cancelled, 120) }, wantHeld: 120},
		{name: "second booking", run: func() error { return svc.CreditHeld(ctx, guide, completed, 80) }, wantHeld: 200},
		{name: "reverse", run: func() error { return svc.ReverseHeld(ctx, guide, cancelled) }, wantHeld: 80},
		{name: "release after reverse", run: func() error { return svc.ReleaseHeld(ctx, guide, cancelled) }, wantHeld: 80},
		{name: "release", run: func() error { return svc.ReleaseHeld(ctx, guide, completed) }, wantHeld: 0, wantAvailable: 80},
		{name: "repeat release", run: func() error { return svc.ReleaseHeld(ctx, guide, completed) }, wantHeld: 0, wantAvailable: 80},
		{name: "reverse without credit", run: func() error { return svc.ReverseHeld(ctx, guide, neverPaid) }, wantHeld: 0, wantAvailable: 80},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		w, err := svc.GetWallet(ctx, guide)
		if err != nil {
			t.Fatalf("%s: GetWallet() error = %v", step.name, err)
		}
		if w.HeldBalance != step.wantHeld || w.AvailableBalance != step.wantAvailable {
			t.Fatalf("%s: held %.2f available %.2f, want %.2f / %.2f",
				step.name, w.HeldBalance, w.AvailableBalance, step.wantHeld, step.wantAvailable)
		}
	}
}

func TestWalletRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := wallet.NewService(store.Wallets(), store)
	guide := uuid.New()

	errAbort := context.Canceled
	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.CreditHeld(ctx, guide, uuid.New(), 50); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("WithinTransaction() error = %v", err)
	}

	w, err := svc.GetWallet(ctx, guide)
	if err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}
	if w.HeldBalance != 0 {
		t.Fatalf("held balance after rollback = %.2f", w.HeldBalance)
	}
}
