// Package gate implements quality gates: inspections inserted between
// production and assembly. A failing gate stops the work order from
// being integrated and routes it to rework.
package gate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/station"
)

// SkipVerificationEnv disables verification commands when set to "1".
const SkipVerificationEnv = "SHOPFLOOR_SKIP_VERIFICATION"

// DefaultCommandTimeout bounds each verification command.
const DefaultCommandTimeout = 2 * time.Minute

// InspectionResult is the outcome of one gate inspection.
type InspectionResult struct {
	Passed  bool
	Details string
	Defects []string
}

// Gate inspects a workstation's output after production.
type Gate interface {
	Inspect(ctx context.Context, ws *station.Workstation) InspectionResult
}

// VerificationGate runs the verification commands of the workstation's
// SOP in its working directory. Verification is strictly SOP-driven: a
// station with no SOP, or an SOP without verification commands, passes
// automatically. There is no default command list.
type VerificationGate struct {
	// Timeout bounds each command. Zero means DefaultCommandTimeout.
	Timeout time.Duration
}

// Inspect runs the resolved commands in order and stops at the first
// failure.
func (g *VerificationGate) Inspect(ctx context.Context, ws *station.Workstation) InspectionResult {
	if os.Getenv(SkipVerificationEnv) == "1" {
		return InspectionResult{Passed: true, Details: "verification skipped by environment"}
	}

	procedure := ws.SOP()
	if !procedure.HasVerification() {
		return InspectionResult{Passed: true, Details: "no verification commands (no SOP attached)"}
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	commands := procedure.VerificationCommands
	for _, command := range commands {
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
		cmd.Dir = ws.Path()
		output, err := cmd.CombinedOutput()
		timedOut := cmdCtx.Err() == context.DeadlineExceeded
		cancel()

		if err != nil {
			detail := "verification failed"
			if timedOut {
				detail = "verification timed out"
			}
			verr := &errors.VerificationError{Command: command, Output: truncate(string(output), 500)}
			return InspectionResult{
				Passed:  false,
				Details: detail,
				Defects: []string{verr.Error()},
			}
		}
	}
	return InspectionResult{Passed: true, Details: fmt.Sprintf("all %d verification commands passed", len(commands))}
}

// ApprovalPolicy is the non-interactive decision an ApprovalGate applies.
type ApprovalPolicy string

const (
	PolicyApprove ApprovalPolicy = "approve"
	PolicyReject  ApprovalPolicy = "reject"
)

// ApprovalGate applies a configured approval policy. It stands in for a
// human review step in non-interactive runs.
type ApprovalGate struct {
	Policy ApprovalPolicy
}

func (g *ApprovalGate) Inspect(ctx context.Context, ws *station.Workstation) InspectionResult {
	if g.Policy == PolicyReject {
		return InspectionResult{
			Passed:  false,
			Details: "rejected by approval policy",
			Defects: []string{"approval policy is reject"},
		}
	}
	return InspectionResult{Passed: true, Details: "approved by policy"}
}

// Chain runs gates in declared order and returns the first failure, or
// the last passing result. An empty chain passes.
func Chain(ctx context.Context, ws *station.Workstation, gates ...Gate) InspectionResult {
	result := InspectionResult{Passed: true, Details: "no gates configured"}
	for _, g := range gates {
		result = g.Inspect(ctx, ws)
		if !result.Passed {
			return result
		}
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
