// Package assembly integrates parallel work back into the parent
// fixture. Assembly is the only point where work from parallel
// workstations converges; a conflict is surfaced immediately with the
// merge aborted so the parent stays clean.
package assembly

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/fixture"
	"github.com/kaizengine/shopfloor/internal/station"
	"github.com/kaizengine/shopfloor/internal/telemetry"
)

// Status is the outcome class of one integration.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusConflict Status = "conflict"
	StatusFailed   Status = "failed"
)

// IntegrationResult describes one merge attempt.
type IntegrationResult struct {
	Status          Status
	MergedFiles     []string
	ConflictedFiles []string
	ConflictDiff    string
	Message         string
}

// Station merges child branches into their parent workstation.
type Station struct {
	// MergeTimeout bounds the merge command. Zero means one minute.
	MergeTimeout time.Duration
	// Metrics is optional.
	Metrics *telemetry.Metrics
}

// Integrate merges the child's branch into the parent working directory
// with git merge --no-ff. On conflict the merge is aborted, the
// conflicted paths are collected, and the parent is left clean.
func (s *Station) Integrate(ctx context.Context, parent, child *station.Workstation) IntegrationResult {
	brancher, ok := child.Fixture().(fixture.Brancher)
	if !ok {
		return IntegrationResult{
			Status:  StatusFailed,
			Message: "child fixture has no branch (not a git fixture)",
		}
	}
	branch := brancher.Branch()

	timeout := s.MergeTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	mergeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(mergeCtx, "git", "merge", "--no-ff", branch,
		"-m", fmt.Sprintf("assembly: merge %s", branch))
	cmd.Dir = parent.Path()
	output, err := cmd.CombinedOutput()

	if mergeCtx.Err() == context.DeadlineExceeded {
		s.abortMerge(parent.Path())
		return IntegrationResult{
			Status:  StatusFailed,
			Message: fmt.Sprintf("merge timed out for %s", branch),
		}
	}

	if err == nil {
		merged := s.changedFiles(parent.Path())
		return IntegrationResult{
			Status:      StatusSuccess,
			MergedFiles: merged,
			Message:     fmt.Sprintf("merged %s (%d files)", branch, len(merged)),
		}
	}

	conflicted := s.conflictedFiles(parent.Path())
	s.abortMerge(parent.Path())

	// No unmerged paths means git refused the merge outright (missing
	// branch, dirty tree), not a content conflict.
	if len(conflicted) == 0 {
		return IntegrationResult{
			Status:  StatusFailed,
			Message: fmt.Sprintf("merge of %s failed: %s", branch, strings.TrimSpace(string(output))),
		}
	}
	s.Metrics.CountMergeConflict()

	return IntegrationResult{
		Status:          StatusConflict,
		ConflictedFiles: conflicted,
		ConflictDiff:    string(output),
		Message:         (&errors.MergeConflictError{Branch: branch, Paths: conflicted}).Error(),
	}
}

func (s *Station) changedFiles(dir string) []string {
	out, err := gitOutput(dir, "diff", "--name-only", "HEAD~1", "HEAD")
	if err != nil {
		return nil
	}
	return splitLines(out)
}

func (s *Station) conflictedFiles(dir string) []string {
	out, err := gitOutput(dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil
	}
	return splitLines(out)
}

func (s *Station) abortMerge(dir string) {
	cmd := exec.Command("git", "merge", "--abort")
	cmd.Dir = dir
	_ = cmd.Run()
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
