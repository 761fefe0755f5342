package transaction

import (
	"context"
	"errors"
	"testing"
)

func TestAfterCommit(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		err     error
		wantRan []string
	}{
		{name: "commit runs hooks in order", wantRan: []string{"first", "second"}},
		{name: "rollback drops hooks", err: boom, wantRan: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []string
			err := RunWithCommitHooks(context.Background(), func(ctx context.Context) error {
				AfterCommit(ctx, func(context.Context) { ran = append(ran, "first") })
				AfterCommit(ctx, func(context.Context) { ran = append(ran, "second") })
				if len(ran) != 0 {
					t.Fatalf("hooks ran before commit: %v", ran)
				}
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("RunWithCommitHooks() error = %v, want %v", err, tt.err)
			}
			if len(ran) != len(tt.wantRan) {
				t.Fatalf("ran = %v, want %v", ran, tt.wantRan)
			}
			for i := range ran {
				if ran[i] != tt.wantRan[i] {
					t.Fatalf("ran = %v, want %v", ran, tt.wantRan)
				}
			}
		})
	}
}

func TestAfterCommitOutsideTransactionRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Fatal("hook should run immediately without a transaction")
	}
}
