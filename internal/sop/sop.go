// Package sop defines Standard Operating Procedures: methodology bundles
// attached to workstations. An SOP carries the instructions the producer
// reads, hook configuration for enforcement, the verification commands the
// quality gates run, and pre-conditions checked at commission time.
//
// Materialization writes two artifacts into the workstation's working
// directory: CLAUDE.md (the instructions file the producer reads natively)
// and .claude/settings.json (hook configuration). Both filenames are part
// of the producer contract and never change.
package sop

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	instructionsFile = "CLAUDE.md"
	settingsDir      = ".claude"
	settingsFile     = "settings.json"

	preConditionTimeout = 30 * time.Second

	// SkipPreConditionsEnv disables pre-condition checks when set to "1".
	SkipPreConditionsEnv = "SHOPFLOOR_SKIP_PRECONDITIONS"
)

// HookSpec is a single producer hook: a shell command bound to a tool
// event, scoped by a tool-name matcher.
type HookSpec struct {
	Event   string `yaml:"event" json:"-"`
	Matcher string `yaml:"matcher" json:"matcher"`
	Command string `yaml:"command" json:"command"`
}

// SOP is a Standard Operating Procedure. Treated as immutable after
// construction: workstations and their spawned children share one SOP
// value by pointer.
type SOP struct {
	Name                 string     `yaml:"name"`
	Instructions         string     `yaml:"instructions"`
	Hooks                []HookSpec `yaml:"hooks"`
	VerificationCommands []string   `yaml:"verification_commands"`
	PreConditions        []string   `yaml:"pre_conditions"`
}

// Materialize writes the SOP artifacts into path. An existing
// materialization from a previous commission is overwritten.
func (s *SOP) Materialize(path string) error {
	if err := os.WriteFile(filepath.Join(path, instructionsFile), []byte(s.Instructions), 0o644); err != nil {
		return fmt.Errorf("failed to write instructions: %w", err)
	}

	if len(s.Hooks) == 0 {
		return nil
	}

	dir := filepath.Join(path, settingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	grouped := make(map[string][]HookSpec)
	for _, h := range s.Hooks {
		grouped[h.Event] = append(grouped[h.Event], h)
	}

	settings := struct {
		Hooks map[string][]HookSpec `json:"hooks"`
	}{Hooks: grouped}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hook settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write hook settings: %w", err)
	}
	return nil
}

// RunPreConditions executes each pre-condition command in path and returns
// one failure message per command that did not succeed. An empty slice
// means all pre-conditions passed. Failures are advisory: commission
// proceeds regardless, the caller decides how loudly to warn.
func (s *SOP) RunPreConditions(ctx context.Context, path string) []string {
	if os.Getenv(SkipPreConditionsEnv) == "1" {
		return nil
	}

	var failures []string
	for _, command := range s.PreConditions {
		cmdCtx, cancel := context.WithTimeout(ctx, preConditionTimeout)
		cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
		cmd.Dir = path
		output, err := cmd.CombinedOutput()
		cancel()
		if err != nil {
			failures = append(failures, fmt.Sprintf("pre-condition failed: %s: %s", command, firstLine(output)))
		}
	}
	return failures
}

// HasVerification reports whether the SOP defines any verification
// commands for the quality gates to run.
func (s *SOP) HasVerification() bool {
	return s != nil && len(s.VerificationCommands) > 0
}

func firstLine(output []byte) string {
	for i, b := range output {
		if b == '\n' {
			return string(output[:i])
		}
	}
	return string(output)
}
