package errors

import (
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// ParseError / CycleError Tests
// -----------------------------------------------------------------------------

func TestParseError_WithLine(t *testing.T) {
	err := NewParseError(3, "expected number %d", 4)

	want := "parse error at line 3: expected number 4"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsFatal(err) {
		t.Error("IsFatal() = false, want true")
	}
	if IsReworkable(err) {
		t.Error("IsReworkable() = true, want false")
	}
}

func TestParseError_WholeDocument(t *testing.T) {
	err := NewParseError(0, "empty list")
	if err.Error() != "parse error: empty list" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCycleError(t *testing.T) {
	err := NewCycleError([]int{0, 2})

	want := "dependency cycle involving WO-0, WO-2"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsFatal(err) {
		t.Error("cycle errors should be fatal")
	}
}

func TestIsFatal_EmptyBreakdown(t *testing.T) {
	wrapped := fmt.Errorf("routing: %w", ErrEmptyBreakdown)
	if !IsFatal(wrapped) {
		t.Error("IsFatal should see through wrapping")
	}
}

// -----------------------------------------------------------------------------
// Work-order-level Error Tests
// -----------------------------------------------------------------------------

func TestFixtureError(t *testing.T) {
	cause := New("permission denied")
	err := NewFixtureError("fork", "/tmp/work", cause)

	if !IsReworkable(err) {
		t.Error("fixture errors should be reworkable")
	}
	if IsFatal(err) {
		t.Error("fixture errors should not be fatal")
	}
	if Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", Unwrap(err), cause)
	}
	if !Is(err, cause) {
		t.Error("Is() should match the wrapped cause")
	}
}

func TestDispatchError_Timeout(t *testing.T) {
	err := NewDispatchTimeout(2, New("context deadline exceeded"))

	if !IsTimeout(err) {
		t.Error("IsTimeout() = false, want true")
	}
	if !IsReworkable(err) {
		t.Error("timeouts should be reworkable")
	}

	plain := NewDispatchError(2, New("collaborator crashed"))
	if IsTimeout(plain) {
		t.Error("plain dispatch errors are not timeouts")
	}
}

func TestVerificationError(t *testing.T) {
	err := NewVerificationError("go test ./...", "FAIL: TestX")

	var ve *VerificationError
	if !As(err, &ve) {
		t.Fatal("As() failed for VerificationError")
	}
	if ve.Output != "FAIL: TestX" {
		t.Errorf("Output = %q", ve.Output)
	}
	if !IsReworkable(err) {
		t.Error("verification failures should be reworkable")
	}
}

func TestMergeConflictError(t *testing.T) {
	err := NewMergeConflictError("sf/wo-1", []string{"main.go", "util.go"})

	want := "merge conflict on sf/wo-1: main.go, util.go"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsReworkable(err) {
		t.Error("merge conflicts should be reworkable")
	}
}

// -----------------------------------------------------------------------------
// Bound Errors
// -----------------------------------------------------------------------------

func TestIsBoundExceeded(t *testing.T) {
	if !IsBoundExceeded(ErrMaxCyclesExceeded) {
		t.Error("max cycles should be a bound error")
	}
	if !IsBoundExceeded(fmt.Errorf("run: %w", ErrMaxIterationsExceeded)) {
		t.Error("wrapped max iterations should be a bound error")
	}
	if IsBoundExceeded(New("other")) {
		t.Error("arbitrary errors are not bound errors")
	}
}
