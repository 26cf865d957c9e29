package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default production config
	if cfg.Production.MaxCycles != 5 {
		t.Errorf("Production.MaxCycles = %d, want 5", cfg.Production.MaxCycles)
	}
	if cfg.Production.MaxIterations != 100 {
		t.Errorf("Production.MaxIterations = %d, want 100", cfg.Production.MaxIterations)
	}
	if cfg.Production.ParallelLimit != 4 {
		t.Errorf("Production.ParallelLimit = %d, want 4", cfg.Production.ParallelLimit)
	}
	if cfg.Production.DispatchTimeoutMinutes != 10 {
		t.Errorf("Production.DispatchTimeoutMinutes = %d, want 10", cfg.Production.DispatchTimeoutMinutes)
	}
	if cfg.Production.MergeConflictPolicy != "rework" {
		t.Errorf("Production.MergeConflictPolicy = %q, want %q", cfg.Production.MergeConflictPolicy, "rework")
	}
	if cfg.Production.ErrorBudget != "shared" {
		t.Errorf("Production.ErrorBudget = %q, want %q", cfg.Production.ErrorBudget, "shared")
	}

	// Verify default fixture config
	if cfg.Fixture.Kind != "auto" {
		t.Errorf("Fixture.Kind = %q, want %q", cfg.Fixture.Kind, "auto")
	}

	// Verify default SOP config
	if cfg.SOP.Name != "default" {
		t.Errorf("SOP.Name = %q, want %q", cfg.SOP.Name, "default")
	}

	// Verify default gate config
	if cfg.Gate.VerificationTimeoutMinutes != 2 {
		t.Errorf("Gate.VerificationTimeoutMinutes = %d, want 2", cfg.Gate.VerificationTimeoutMinutes)
	}
	if cfg.Gate.ApprovalPolicy != "" {
		t.Errorf("Gate.ApprovalPolicy should be empty, got %q", cfg.Gate.ApprovalPolicy)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestDefault_PassesValidation(t *testing.T) {
	cfg := Default()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() should pass validation, got %v", ValidationErrors(errs))
	}
}

func TestProductionConfig_DispatchTimeout(t *testing.T) {
	tests := []struct {
		minutes  int
		expected time.Duration
	}{
		{1, 1 * time.Minute},
		{10, 10 * time.Minute},
		{90, 90 * time.Minute},
		{0, 0},
	}

	for _, tt := range tests {
		cfg := ProductionConfig{DispatchTimeoutMinutes: tt.minutes}
		result := cfg.DispatchTimeout()
		if result != tt.expected {
			t.Errorf("DispatchTimeout() with %d minutes = %v, want %v", tt.minutes, result, tt.expected)
		}
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := Default()
	cfg.Production.MaxCycles = 7
	cfg.Production.ParallelLimit = 2
	cfg.Production.DispatchTimeoutMinutes = 3
	cfg.Production.MergeConflictPolicy = "halt"
	cfg.Production.ErrorBudget = "separate"

	opts := cfg.Options()
	if opts.MaxCycles != 7 {
		t.Errorf("Options().MaxCycles = %d, want 7", opts.MaxCycles)
	}
	if opts.ParallelLimit != 2 {
		t.Errorf("Options().ParallelLimit = %d, want 2", opts.ParallelLimit)
	}
	if opts.DispatchTimeout != 3*time.Minute {
		t.Errorf("Options().DispatchTimeout = %v, want 3m", opts.DispatchTimeout)
	}
	if string(opts.MergeConflictPolicy) != "halt" {
		t.Errorf("Options().MergeConflictPolicy = %q, want %q", opts.MergeConflictPolicy, "halt")
	}
	if string(opts.ErrorBudget) != "separate" {
		t.Errorf("Options().ErrorBudget = %q, want %q", opts.ErrorBudget, "separate")
	}
}

func TestValidFixtureKinds(t *testing.T) {
	kinds := ValidFixtureKinds()

	expected := []string{"auto", "repo", "localdir", "clone"}
	if len(kinds) != len(expected) {
		t.Errorf("ValidFixtureKinds() length = %d, want %d", len(kinds), len(expected))
	}

	for i, kind := range expected {
		if kinds[i] != kind {
			t.Errorf("ValidFixtureKinds()[%d] = %q, want %q", i, kinds[i], kind)
		}
	}
}

func TestIsValidFixtureKind(t *testing.T) {
	tests := []struct {
		kind  string
		valid bool
	}{
		{"auto", true},
		{"repo", true},
		{"localdir", true},
		{"clone", true},
		{"worktree", false}, // Worktrees are created internally, not configured
		{"invalid", false},
		{"", false},
		{"REPO", false}, // Case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			result := IsValidFixtureKind(tt.kind)
			if result != tt.valid {
				t.Errorf("IsValidFixtureKind(%q) = %v, want %v", tt.kind, result, tt.valid)
			}
		})
	}
}

func TestPathsConfig_ResolveRunDir(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		runDir   string
		baseDir  string
		expected string
	}{
		{"empty uses default", "", "/work/project", "/work/project/.shopfloor/runs"},
		{"absolute path kept", "/var/lib/runs", "/work/project", "/var/lib/runs"},
		{"relative resolved against base", "runs", "/work/project", "/work/project/runs"},
		{"tilde expanded", "~/runs", "/work/project", filepath.Join(home, "runs")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathsConfig{RunDir: tt.runDir}
			result := p.ResolveRunDir(tt.baseDir)
			if result != tt.expected {
				t.Errorf("ResolveRunDir(%q) = %q, want %q", tt.baseDir, result, tt.expected)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/shopfloor"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "shopfloor")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/shopfloor/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	// Should have default values
	if cfg.Production.MaxCycles != 5 {
		t.Errorf("Get().Production.MaxCycles = %d, want 5", cfg.Production.MaxCycles)
	}
	if cfg.SOP.Name != "default" {
		t.Errorf("Get().SOP.Name = %q, want %q", cfg.SOP.Name, "default")
	}
}
