package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaizengine/shopfloor/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify ShopFloor configuration",
	Long: `View or modify ShopFloor configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  shopfloor config set production.max_cycles 10
  shopfloor config set production.merge_conflict_policy halt
  shopfloor config set sop.name hotfix

Valid keys:
  production.max_cycles            - Maximum production cycles including rework
  production.max_iterations        - Total work order attempt budget
  production.parallel_limit        - Maximum concurrent work orders per layer
  production.dispatch_timeout_minutes - Per-order dispatch timeout
  production.producer_command      - Shell command run for each work order
  production.merge_conflict_policy - rework or halt
  production.error_budget          - shared or separate
  sop.name                         - Standard operating procedure to apply
  sop.dir                          - Directory of extra procedure YAML files
  fixture.kind                     - auto, repo, localdir or clone
  logging.level                    - debug, info, warn or error`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/shopfloor/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "production:")
	fmt.Fprintf(out, "  max_cycles: %d\n", cfg.Production.MaxCycles)
	fmt.Fprintf(out, "  max_iterations: %d\n", cfg.Production.MaxIterations)
	fmt.Fprintf(out, "  parallel_limit: %d\n", cfg.Production.ParallelLimit)
	fmt.Fprintf(out, "  dispatch_timeout_minutes: %d\n", cfg.Production.DispatchTimeoutMinutes)
	fmt.Fprintf(out, "  producer_command: %s\n", cfg.Production.ProducerCommand)
	fmt.Fprintf(out, "  merge_conflict_policy: %s\n", cfg.Production.MergeConflictPolicy)
	fmt.Fprintf(out, "  error_budget: %s\n", cfg.Production.ErrorBudget)

	fmt.Fprintln(out, "fixture:")
	fmt.Fprintf(out, "  kind: %s\n", cfg.Fixture.Kind)
	if cfg.Fixture.Source != "" {
		fmt.Fprintf(out, "  source: %s\n", cfg.Fixture.Source)
	}

	fmt.Fprintln(out, "sop:")
	fmt.Fprintf(out, "  name: %s\n", cfg.SOP.Name)
	if cfg.SOP.Dir != "" {
		fmt.Fprintf(out, "  dir: %s\n", cfg.SOP.Dir)
	}

	fmt.Fprintln(out, "gate:")
	fmt.Fprintf(out, "  verification_timeout_minutes: %d\n", cfg.Gate.VerificationTimeoutMinutes)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"production.max_cycles":               "int",
		"production.max_iterations":           "int",
		"production.parallel_limit":           "int",
		"production.dispatch_timeout_minutes": "int",
		"production.producer_command":         "string",
		"production.merge_conflict_policy":    "string",
		"production.error_budget":             "string",
		"sop.name":                            "string",
		"sop.dir":                             "string",
		"fixture.kind":                        "string",
		"fixture.source":                      "string",
		"logging.enabled":                     "bool",
		"logging.level":                       "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'shopfloor config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		switch key {
		case "fixture.kind":
			if !config.IsValidFixtureKind(value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidFixtureKinds(), ", "))
			}
		case "production.merge_conflict_policy":
			if !contains(config.ValidMergeConflictPolicies(), value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidMergeConflictPolicies(), ", "))
			}
		case "production.error_budget":
			if !contains(config.ValidErrorBudgets(), value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidErrorBudgets(), ", "))
			}
		case "logging.level":
			if !contains(config.ValidLogLevels(), value) {
				return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
					key, value, strings.Join(config.ValidLogLevels(), ", "))
			}
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'shopfloor config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# ShopFloor Configuration

# Production pipeline settings
production:
  # Maximum production cycles, including rework passes
  max_cycles: 5
  # Total work order attempt budget across all cycles
  max_iterations: 100
  # Maximum concurrent work orders within a layer
  parallel_limit: 4
  # Per-order dispatch timeout in minutes
  dispatch_timeout_minutes: 10
  # Shell command run for each work order
  producer_command: ""
  # What to do on a merge conflict: rework or halt
  merge_conflict_policy: rework
  # How dispatch errors count: shared or separate
  error_budget: shared

# Parent fixture settings
fixture:
  # auto, repo, localdir or clone
  kind: auto

# Standard operating procedure
sop:
  # Built-ins: default, hotfix, refactor, documentation
  name: default
  # Optional directory of extra procedure YAML files
  # dir: ~/.config/shopfloor/sops

# Quality gate settings
gate:
  verification_timeout_minutes: 2

# Debug logging
logging:
  enabled: true
  level: info
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize ShopFloor's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/shopfloor/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: SHOPFLOOR_* (e.g., SHOPFLOOR_PRODUCTION_MAX_CYCLES)")

	return nil
}

func contains(values []string, v string) bool {
	for _, valid := range values {
		if v == valid {
			return true
		}
	}
	return false
}
