package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(ErrNotFound, "job not found")
	if got := plain.Error(); got != "[NOT_FOUND] job not found" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(ErrDatabase, "query failed", fmt.Errorf("disk io"))
	if got := wrapped.Error(); got != "[DATABASE_ERROR] query failed: disk io" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnwrapChain(t *testing.T) {
	root := fmt.Errorf("root cause")
	err := Wrap(ErrRemoteUnavailable, "GET /jobs", root)

	if !stderrors.Is(err, root) {
		t.Error("errors.Is should find the root cause through Unwrap")
	}
}

func TestIsAndCodeOf(t *testing.T) {
	err := Wrap(ErrRemoteUnavailable, "probe", fmt.Errorf("timeout"))

	if !Is(err, ErrRemoteUnavailable) {
		t.Error("Is() should match the carried code")
	}
	if Is(err, ErrNotFound) {
		t.Error("Is() matched the wrong code")
	}
	if CodeOf(err) != ErrRemoteUnavailable {
		t.Errorf("CodeOf() = %s", CodeOf(err))
	}

	// Wrapped deeper in a plain chain the code still surfaces.
	outer := fmt.Errorf("sync pass: %w", err)
	if CodeOf(outer) != ErrRemoteUnavailable {
		t.Errorf("CodeOf(wrapped) = %s", CodeOf(outer))
	}

	if CodeOf(fmt.Errorf("plain")) != ErrInternal {
		t.Errorf("CodeOf(plain) = %s, want %s", CodeOf(fmt.Errorf("plain")), ErrInternal)
	}
}
