package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kaizengine/shopfloor/internal/shopfloor"
)

// Config represents the complete ShopFloor configuration
type Config struct {
	Production ProductionConfig `mapstructure:"production"`
	Fixture    FixtureConfig    `mapstructure:"fixture"`
	SOP        SOPConfig        `mapstructure:"sop"`
	Gate       GateConfig       `mapstructure:"gate"`
	Assembly   AssemblyConfig   `mapstructure:"assembly"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Paths      PathsConfig      `mapstructure:"paths"`
}

// ProductionConfig controls the rework loop and dispatch behavior
type ProductionConfig struct {
	// MaxCycles limits the number of production cycles, including rework
	// passes (default: 5)
	MaxCycles int `mapstructure:"max_cycles"`
	// MaxIterations limits the total number of work order attempts across
	// all cycles (default: 100)
	MaxIterations int `mapstructure:"max_iterations"`
	// ParallelLimit caps how many work orders run concurrently within a
	// layer (default: 4)
	ParallelLimit int `mapstructure:"parallel_limit"`
	// DispatchTimeoutMinutes is the maximum runtime for a single work order
	// dispatch (default: 10)
	DispatchTimeoutMinutes int `mapstructure:"dispatch_timeout_minutes"`
	// ProducerCommand is the shell command run to execute each work order.
	// The command receives SHOPFLOOR_ORDER_INDEX, SHOPFLOOR_ORDER_DESCRIPTION
	// and SHOPFLOOR_ORDER_ATTEMPT in its environment.
	ProducerCommand string `mapstructure:"producer_command"`
	// MergeConflictPolicy controls what happens when assembly hits a merge
	// conflict: "rework" re-enqueues the conflicted order, "halt" aborts the
	// run (default: "rework")
	MergeConflictPolicy string `mapstructure:"merge_conflict_policy"`
	// ErrorBudget controls how dispatch errors are counted: "shared" counts
	// them against the cycle budget only, "separate" additionally trips a
	// circuit breaker after MaxConsecutiveErrors (default: "shared")
	ErrorBudget string `mapstructure:"error_budget"`
	// MaxConsecutiveErrors is the circuit breaker threshold for the
	// "separate" error budget (default: 3)
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"`
}

// FixtureConfig controls how the parent workstation's fixture is set up
type FixtureConfig struct {
	// Kind selects the fixture type: "auto" detects from the target path,
	// "repo" requires a git repository, "localdir" uses a plain directory,
	// "clone" clones a source URL into the target (default: "auto")
	Kind string `mapstructure:"kind"`
	// Source is the URL or path cloned when kind is "clone"
	Source string `mapstructure:"source"`
}

// SOPConfig controls standard operating procedure selection
type SOPConfig struct {
	// Name is the procedure applied to the parent workstation
	// (default: "default"). Built-ins: "default", "hotfix", "refactor",
	// "documentation".
	Name string `mapstructure:"name"`
	// Dir is an optional directory of additional procedure YAML files,
	// loaded on top of the built-ins
	Dir string `mapstructure:"dir"`
}

// GateConfig controls quality gate behavior
type GateConfig struct {
	// VerificationTimeoutMinutes is the per-command timeout for verification
	// commands (default: 2)
	VerificationTimeoutMinutes int `mapstructure:"verification_timeout_minutes"`
	// ApprovalPolicy adds a final approval gate when set: "approve" or
	// "reject". Empty (default) disables the approval gate.
	ApprovalPolicy string `mapstructure:"approval_policy"`
}

// AssemblyConfig controls merge behavior for parallel work
type AssemblyConfig struct {
	// MergeTimeoutMinutes is the maximum time for a single merge (default: 1)
	MergeTimeoutMinutes int `mapstructure:"merge_timeout_minutes"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where ShopFloor stores run data
type PathsConfig struct {
	// RunDir is the directory where run logs and reports are written.
	// If empty, defaults to ".shopfloor/runs" relative to the target
	// directory. Supports ~ for home directory expansion.
	RunDir string `mapstructure:"run_dir"`
}

// ResolveRunDir returns the resolved run directory path.
// If RunDir is empty, it returns the default path relative to baseDir.
// If RunDir starts with ~, it expands to the user's home directory.
// If RunDir is a relative path, it's resolved relative to baseDir.
func (p *PathsConfig) ResolveRunDir(baseDir string) string {
	if p.RunDir == "" {
		return filepath.Join(baseDir, ".shopfloor", "runs")
	}

	path := p.RunDir

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	opts := shopfloor.DefaultOptions()
	return &Config{
		Production: ProductionConfig{
			MaxCycles:              opts.MaxCycles,
			MaxIterations:          opts.MaxIterations,
			ParallelLimit:          opts.ParallelLimit,
			DispatchTimeoutMinutes: int(opts.DispatchTimeout / time.Minute),
			ProducerCommand:        "",
			MergeConflictPolicy:    string(opts.MergeConflictPolicy),
			ErrorBudget:            string(opts.ErrorBudget),
			MaxConsecutiveErrors:   opts.MaxConsecutiveErrors,
		},
		Fixture: FixtureConfig{
			Kind:   "auto",
			Source: "",
		},
		SOP: SOPConfig{
			Name: "default",
			Dir:  "",
		},
		Gate: GateConfig{
			VerificationTimeoutMinutes: 2,
			ApprovalPolicy:             "", // No approval gate by default
		},
		Assembly: AssemblyConfig{
			MergeTimeoutMinutes: 1,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			RunDir: "", // Empty means use default: .shopfloor/runs
		},
	}
}

// DispatchTimeout returns the dispatch timeout as a time.Duration
func (c *ProductionConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMinutes) * time.Minute
}

// VerificationTimeout returns the verification timeout as a time.Duration
func (c *GateConfig) VerificationTimeout() time.Duration {
	return time.Duration(c.VerificationTimeoutMinutes) * time.Minute
}

// MergeTimeout returns the merge timeout as a time.Duration
func (c *AssemblyConfig) MergeTimeout() time.Duration {
	return time.Duration(c.MergeTimeoutMinutes) * time.Minute
}

// Options converts the production settings into engine options
func (c *Config) Options() *shopfloor.Options {
	return &shopfloor.Options{
		MaxCycles:            c.Production.MaxCycles,
		MaxIterations:        c.Production.MaxIterations,
		ParallelLimit:        c.Production.ParallelLimit,
		DispatchTimeout:      c.Production.DispatchTimeout(),
		MergeConflictPolicy:  shopfloor.MergeConflictPolicy(c.Production.MergeConflictPolicy),
		ErrorBudget:          shopfloor.ErrorBudget(c.Production.ErrorBudget),
		MaxConsecutiveErrors: c.Production.MaxConsecutiveErrors,
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Production defaults
	viper.SetDefault("production.max_cycles", defaults.Production.MaxCycles)
	viper.SetDefault("production.max_iterations", defaults.Production.MaxIterations)
	viper.SetDefault("production.parallel_limit", defaults.Production.ParallelLimit)
	viper.SetDefault("production.dispatch_timeout_minutes", defaults.Production.DispatchTimeoutMinutes)
	viper.SetDefault("production.producer_command", defaults.Production.ProducerCommand)
	viper.SetDefault("production.merge_conflict_policy", defaults.Production.MergeConflictPolicy)
	viper.SetDefault("production.error_budget", defaults.Production.ErrorBudget)
	viper.SetDefault("production.max_consecutive_errors", defaults.Production.MaxConsecutiveErrors)

	// Fixture defaults
	viper.SetDefault("fixture.kind", defaults.Fixture.Kind)
	viper.SetDefault("fixture.source", defaults.Fixture.Source)

	// SOP defaults
	viper.SetDefault("sop.name", defaults.SOP.Name)
	viper.SetDefault("sop.dir", defaults.SOP.Dir)

	// Gate defaults
	viper.SetDefault("gate.verification_timeout_minutes", defaults.Gate.VerificationTimeoutMinutes)
	viper.SetDefault("gate.approval_policy", defaults.Gate.ApprovalPolicy)

	// Assembly defaults
	viper.SetDefault("assembly.merge_timeout_minutes", defaults.Assembly.MergeTimeoutMinutes)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.run_dir", defaults.Paths.RunDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shopfloor")
	}
	// Fall back to ~/.config/shopfloor
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopfloor"
	}
	return filepath.Join(home, ".config", "shopfloor")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidFixtureKinds returns the list of valid fixture kind values
func ValidFixtureKinds() []string {
	return []string{"auto", "repo", "localdir", "clone"}
}

// IsValidFixtureKind checks if the given kind is valid
func IsValidFixtureKind(kind string) bool {
	for _, valid := range ValidFixtureKinds() {
		if kind == valid {
			return true
		}
	}
	return false
}
