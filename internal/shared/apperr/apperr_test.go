package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := CapacityExceeded()
	wrapped := fmt.Errorf("create booking: %w", base)

	if got := KindOf(wrapped); got != KindCapacityExceeded {
		t.Fatalf("KindOf = %q, want %q", got, KindCapacityExceeded)
	}
	if !IsKind(wrapped, KindCapacityExceeded) {
		t.Fatal("IsKind should match through wrapping")
	}
	if IsKind(nil, KindNotFound) {
		t.Fatal("nil error has no kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain errors have no kind")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("gateway timeout")
	err := Upstream("payment url", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}
