package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesThroughWrapping(t *testing.T) {
	err := ErrNotAMember.WrapMsg("check failed", "conversation", "c1")
	if !ErrNotAMember.Is(err) {
		t.Fatal("Is failed on wrapped error")
	}
	if ErrNotFound.Is(err) {
		t.Fatal("Is matched a different code")
	}

	// Another layer of wrapping keeps the code reachable.
	outer := fmt.Errorf("outer: %w", err)
	if !ErrNotAMember.Is(outer) {
		t.Fatal("Is failed through fmt.Errorf wrapping")
	}
}

func TestWrapMsgAccumulatesDetail(t *testing.T) {
	err := ErrNotFound.WrapMsg("user lookup", "id", "u1")
	ce, ok := AsCodeError(err)
	if !ok {
		t.Fatal("AsCodeError failed")
	}
	if ce.Code != ErrNotFound.Code {
		t.Fatalf("code = %d", ce.Code)
	}
	if ce.Detail == "" {
		t.Fatal("detail dropped")
	}
	// The prototype must stay clean for the next caller.
	if ErrNotFound.Detail != "" {
		t.Fatalf("prototype mutated: %q", ErrNotFound.Detail)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrAccountLocked.Wrap()); got != ErrAccountLocked.Code {
		t.Fatalf("CodeOf = %d", got)
	}
	if got := CodeOf(errors.New("plain")); got != 0 {
		t.Fatalf("CodeOf(plain) = %d, want 0", got)
	}
	if got := CodeOf(nil); got != 0 {
		t.Fatalf("CodeOf(nil) = %d, want 0", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}
	if WrapMsg(nil, "context") != nil {
		t.Fatal("WrapMsg(nil) != nil")
	}
}
