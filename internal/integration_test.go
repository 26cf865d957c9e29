// Package internal contains integration tests that verify the packages
// work together the way the CLI composes them: configuration feeding the
// engine, SOP materialization on real fixtures, and run logs that can be
// aggregated after the fact.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kaizengine/shopfloor/internal/config"
	"github.com/kaizengine/shopfloor/internal/fixture"
	"github.com/kaizengine/shopfloor/internal/gate"
	"github.com/kaizengine/shopfloor/internal/logging"
	"github.com/kaizengine/shopfloor/internal/order"
	"github.com/kaizengine/shopfloor/internal/shopfloor"
	"github.com/kaizengine/shopfloor/internal/sop"
	"github.com/kaizengine/shopfloor/internal/station"
	"github.com/kaizengine/shopfloor/internal/telemetry"
	"github.com/kaizengine/shopfloor/internal/testutil"
)

// fileWritingProducer writes one file per work order into the workstation,
// standing in for the external producer command.
func fileWritingProducer() shopfloor.Producer {
	return shopfloor.ProducerFunc(func(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error) {
		name := fmt.Sprintf("part-%d.txt", wo.Index)
		if err := os.WriteFile(filepath.Join(ws.Path(), name), []byte(wo.Description+"\n"), 0o644); err != nil {
			return nil, err
		}
		return &order.Result{Index: wo.Index, Status: order.ResultSuccess, FilesChanged: []string{name}}, nil
	})
}

// TestConfigDrivesEngine verifies that a Config mapped through Options()
// bounds a run the same way hand-built Options do.
func TestConfigDrivesEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Production.MaxCycles = 2
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("config invalid: %v", errs)
	}

	failing := shopfloor.ProducerFunc(func(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error) {
		return &order.Result{Index: wo.Index, Status: order.ResultFailure, Detail: "defect"}, nil
	})

	dir := testutil.SetupTestRepo(t)
	parent := station.New(fixture.NewRepo(dir))
	sf := shopfloor.New(parent, failing, cfg.Options())

	report, err := sf.Produce(context.Background(), "bounded run", "1. Press widgets\n")
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}

	if report.State != shopfloor.StateAborted {
		t.Fatalf("state = %v, expected aborted", report.State)
	}
	if report.Orders[0].Attempts != 2 {
		t.Errorf("attempts = %d, expected MaxCycles from config to bound them at 2", report.Orders[0].Attempts)
	}
}

// TestRunWithSOPAndGates drives the full pipeline the way the run command
// wires it: a builtin SOP materialized onto a git fixture, a verification
// gate, and metrics.
func TestRunWithSOPAndGates(t *testing.T) {
	testutil.ConfigureGitIdentity(t)

	procedure := sop.Lookup(sop.NameDefault)
	if procedure == nil {
		t.Fatal("builtin default SOP missing")
	}
	// Builtin verification commands expect a Go project; use a procedure
	// with a check this scratch repo can satisfy.
	procedure = &sop.SOP{
		Name:                 procedure.Name,
		Instructions:         procedure.Instructions,
		VerificationCommands: []string{"test -f README.md"},
	}

	dir := testutil.SetupTestRepo(t)
	parent := station.New(fixture.NewRepo(dir), station.WithSOP(procedure))
	metrics := telemetry.New()
	sf := shopfloor.New(parent, fileWritingProducer(), nil,
		shopfloor.WithGates(&gate.VerificationGate{}),
		shopfloor.WithMetrics(metrics),
	)

	breakdown := "1. Cut stock\n2. Deburr left edge (depends: 1)\n3. Deburr right edge (depends: 1)\n"
	report, err := sf.Produce(context.Background(), "widget batch", breakdown)
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if report.State != shopfloor.StateDone {
		t.Fatalf("state = %v (reason %v), expected done", report.State, report.Reason)
	}

	// SOP materialized into the parent working tree at commission time.
	instructions, err := os.ReadFile(filepath.Join(parent.Path(), "CLAUDE.md"))
	if err != nil {
		t.Fatalf("instructions file missing after run: %v", err)
	}
	if len(instructions) == 0 {
		t.Error("instructions file is empty")
	}

	// All three parts assembled back into the parent.
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(parent.Path(), fmt.Sprintf("part-%d.txt", i))); err != nil {
			t.Errorf("part-%d.txt missing from parent: %v", i, err)
		}
	}

	snap := metrics.Snapshot()
	if snap.Dispatches != 3 {
		t.Errorf("dispatches = %d, expected 3", snap.Dispatches)
	}
	if snap.GateInspections == 0 {
		t.Error("gate inspections were not counted")
	}
}

// TestRunLogsAreAggregatable verifies the logging path end to end: the
// engine writes structured entries into a run directory, and the
// aggregation API can read, filter, and contextualize them afterwards.
func TestRunLogsAreAggregatable(t *testing.T) {
	runDir := t.TempDir()
	logger, err := logging.NewLoggerWithRotation(runDir, logging.LevelDebug, logging.RotationConfig{
		MaxSizeMB:  10,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation failed: %v", err)
	}

	dir := testutil.SetupTestRepo(t)
	parent := station.New(fixture.NewRepo(dir), station.WithLogger(logger))
	sf := shopfloor.New(parent, fileWritingProducer(), nil, shopfloor.WithLogger(logger))

	report, err := sf.Produce(context.Background(), "logged run", "1. Cut stock\n2. Polish (depends: 1)\n")
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if report.State != shopfloor.StateDone {
		t.Fatalf("state = %v (reason %v), expected done", report.State, report.Reason)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("logger close failed: %v", err)
	}

	entries, err := logging.AggregateLogs(runDir)
	if err != nil {
		t.Fatalf("AggregateLogs failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no log entries written during the run")
	}

	// Every engine entry carries the run ID.
	var withRun int
	for _, e := range entries {
		if e.RunID == report.RunID {
			withRun++
		}
	}
	if withRun == 0 {
		t.Errorf("no entries carry run ID %s", report.RunID)
	}

	// Dispatch entries are filterable per work order.
	perOrder := logging.FilterLogs(entries, logging.LogFilter{WorkOrder: "1"})
	if len(perOrder) == 0 {
		t.Error("no entries for work order 1")
	}
	for _, e := range perOrder {
		if e.WorkOrder != "1" {
			t.Errorf("filter leaked entry for work order %q", e.WorkOrder)
		}
	}

	// Production stage entries exist for dispatches.
	staged := logging.FilterLogs(entries, logging.LogFilter{Stage: "production"})
	if len(staged) == 0 {
		t.Error("no production stage entries")
	}
	var sawDispatch bool
	for _, e := range staged {
		if strings.Contains(e.Message, "dispatching") {
			sawDispatch = true
		}
	}
	if !sawDispatch {
		t.Error("production stage entries missing dispatch records")
	}
}

// TestLocalDirFixtureRoundTrip runs a single-order production on a plain
// directory fixture, the path taken when the target is not a git repo.
func TestLocalDirFixtureRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch\n"), 0o644); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	parent := station.New(fixture.NewLocalDir(dir))
	sf := shopfloor.New(parent, fileWritingProducer(), nil)

	report, err := sf.Produce(context.Background(), "local dir run", "1. Single job\n")
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if report.State != shopfloor.StateDone {
		t.Fatalf("state = %v (reason %v), expected done", report.State, report.Reason)
	}
	if _, err := os.Stat(filepath.Join(parent.Path(), "part-0.txt")); err != nil {
		t.Errorf("produced file missing: %v", err)
	}
}
