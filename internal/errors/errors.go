// Package errors provides centralized error definitions and error handling
// utilities for the ShopFloor codebase. It defines domain-specific errors,
// error constructors with context wrapping, and classification helpers used
// by the orchestrator to decide between fatal aborts and Kaizen rework.
//
// # Error Types
//
// Pre-dispatch errors are fatal: there is nothing to schedule.
//   - ParseError: malformed breakdown-of-work text
//   - CycleError: dependency cycle in the work order graph
//
// Work-order-level errors never abort a run; they are captured into the
// work order's result and retried through the rework loop:
//   - FixtureError: VCS/filesystem setup, fork, checkpoint, or teardown failure
//   - DispatchError: the execution collaborator failed or timed out
//   - VerificationError: a quality gate command failed
//   - MergeConflictError: assembly could not cleanly merge a child branch
//
// Run-level bound errors end the run and surface all non-terminal work:
//   - ErrMaxCyclesExceeded, ErrMaxIterationsExceeded
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewParseError(3, "line does not match '<N>. <description>'")
//	err := errors.NewFixtureError("fork", path, baseErr)
//
// Checking errors:
//
//	if errors.IsFatal(err) { ... }
//	var pe *errors.ParseError
//	if errors.As(err, &pe) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrEmptyBreakdown indicates the breakdown text contained no work orders.
	ErrEmptyBreakdown = New("breakdown contains no work orders")
	// ErrForkUnsupported indicates the fixture kind cannot fork.
	ErrForkUnsupported = New("fixture does not support fork")
	// ErrNotRepository indicates a path is not inside a git repository.
	ErrNotRepository = New("not a git repository")
	// ErrNoBranch indicates a fixture has no branch to merge.
	ErrNoBranch = New("fixture has no branch")
	// ErrMaxCyclesExceeded indicates the rework cycle bound was exhausted.
	ErrMaxCyclesExceeded = New("max rework cycles exceeded")
	// ErrMaxIterationsExceeded indicates the total dispatch attempt bound was exhausted.
	ErrMaxIterationsExceeded = New("max dispatch iterations exceeded")
	// ErrHaltedOnConflict indicates the run stopped for manual conflict resolution.
	ErrHaltedOnConflict = New("halted on merge conflict")
	// ErrStationDecommissioned indicates an operation on a torn-down workstation.
	ErrStationDecommissioned = New("workstation is decommissioned")
)

// -----------------------------------------------------------------------------
// Pre-dispatch Errors (fatal)
// -----------------------------------------------------------------------------

// ParseError indicates the breakdown-of-work text could not be parsed.
// Line is 1-based; 0 means the error applies to the whole document.
type ParseError struct {
	Line   int
	Reason string
}

// NewParseError creates a ParseError for the given 1-based line number.
func NewParseError(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// CycleError indicates the dependency graph contains a cycle.
// Stuck holds the 0-based indices of the work orders that could not be placed.
type CycleError struct {
	Stuck []int
}

// NewCycleError creates a CycleError naming the unplaceable work orders.
func NewCycleError(stuck []int) *CycleError {
	return &CycleError{Stuck: stuck}
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Stuck))
	for i, idx := range e.Stuck {
		parts[i] = fmt.Sprintf("WO-%d", idx)
	}
	return fmt.Sprintf("dependency cycle involving %s", strings.Join(parts, ", "))
}

// -----------------------------------------------------------------------------
// Work-order-level Errors (reworkable)
// -----------------------------------------------------------------------------

// FixtureError indicates a VCS or filesystem operation on a fixture failed.
type FixtureError struct {
	Op   string // "setup", "fork", "checkpoint", "teardown"
	Path string
	Err  error
}

// NewFixtureError creates a FixtureError wrapping the underlying cause.
func NewFixtureError(op, path string, err error) *FixtureError {
	return &FixtureError{Op: op, Path: path, Err: err}
}

func (e *FixtureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fixture %s failed at %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("fixture %s failed at %s", e.Op, e.Path)
}

func (e *FixtureError) Unwrap() error { return e.Err }

// DispatchError indicates the execution collaborator failed or exceeded its
// timeout for a single work order.
type DispatchError struct {
	Index   int // work order index
	Timeout bool
	Err     error
}

// NewDispatchError creates a DispatchError for the given work order.
func NewDispatchError(index int, err error) *DispatchError {
	return &DispatchError{Index: index, Err: err}
}

// NewDispatchTimeout creates a DispatchError marking a timed-out dispatch.
func NewDispatchTimeout(index int, err error) *DispatchError {
	return &DispatchError{Index: index, Timeout: true, Err: err}
}

func (e *DispatchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("dispatch of WO-%d timed out: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("dispatch of WO-%d failed: %v", e.Index, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// VerificationError indicates a quality gate command failed. Output carries
// the captured stdout/stderr of the failing command for rework context.
type VerificationError struct {
	Command string
	Output  string
}

// NewVerificationError creates a VerificationError with captured output.
func NewVerificationError(command, output string) *VerificationError {
	return &VerificationError{Command: command, Output: output}
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification command failed: %s", e.Command)
}

// MergeConflictError indicates assembly could not cleanly merge a child
// branch into the parent. Paths lists the conflicting files.
type MergeConflictError struct {
	Branch string
	Paths  []string
}

// NewMergeConflictError creates a MergeConflictError for the given branch.
func NewMergeConflictError(branch string, paths []string) *MergeConflictError {
	return &MergeConflictError{Branch: branch, Paths: paths}
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict on %s: %s", e.Branch, strings.Join(e.Paths, ", "))
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true for pre-dispatch errors that abort a run immediately
// with no partial results.
func IsFatal(err error) bool {
	var pe *ParseError
	var ce *CycleError
	return As(err, &pe) || As(err, &ce) || Is(err, ErrEmptyBreakdown)
}

// IsReworkable returns true for work-order-level errors that are eligible
// for the Kaizen rework loop rather than aborting the run.
func IsReworkable(err error) bool {
	var fe *FixtureError
	var de *DispatchError
	var ve *VerificationError
	var me *MergeConflictError
	return As(err, &fe) || As(err, &de) || As(err, &ve) || As(err, &me)
}

// IsTimeout returns true if the error is a timed-out dispatch.
func IsTimeout(err error) bool {
	var de *DispatchError
	return As(err, &de) && de.Timeout
}

// IsBoundExceeded returns true if the error is a run-level bound exhaustion.
func IsBoundExceeded(err error) bool {
	return Is(err, ErrMaxCyclesExceeded) || Is(err, ErrMaxIterationsExceeded)
}
