package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "production.max_cycles")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidMergeConflictPolicies returns the list of valid merge conflict policies
func ValidMergeConflictPolicies() []string {
	return []string{"rework", "halt"}
}

// ValidErrorBudgets returns the list of valid error budget modes
func ValidErrorBudgets() []string {
	return []string{"shared", "separate"}
}

// ValidApprovalPolicies returns the list of valid approval gate policies.
// The empty string is also accepted and disables the approval gate.
func ValidApprovalPolicies() []string {
	return []string{"approve", "reject"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Production config
	errors = append(errors, c.validateProduction()...)

	// Validate Fixture config
	errors = append(errors, c.validateFixture()...)

	// Validate Gate config
	errors = append(errors, c.validateGate()...)

	// Validate Assembly config
	errors = append(errors, c.validateAssembly()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateProduction validates the ProductionConfig
func (c *Config) validateProduction() []ValidationError {
	var errors []ValidationError

	const maxCyclesLimit = 1000
	if c.Production.MaxCycles < 1 {
		errors = append(errors, ValidationError{
			Field:   "production.max_cycles",
			Value:   c.Production.MaxCycles,
			Message: "must be at least 1",
		})
	}
	if c.Production.MaxCycles > maxCyclesLimit {
		errors = append(errors, ValidationError{
			Field:   "production.max_cycles",
			Value:   c.Production.MaxCycles,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCyclesLimit),
		})
	}

	if c.Production.MaxIterations < 1 {
		errors = append(errors, ValidationError{
			Field:   "production.max_iterations",
			Value:   c.Production.MaxIterations,
			Message: "must be at least 1",
		})
	}

	const maxParallelLimit = 64
	if c.Production.ParallelLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "production.parallel_limit",
			Value:   c.Production.ParallelLimit,
			Message: "must be at least 1",
		})
	}
	if c.Production.ParallelLimit > maxParallelLimit {
		errors = append(errors, ValidationError{
			Field:   "production.parallel_limit",
			Value:   c.Production.ParallelLimit,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallelLimit),
		})
	}

	// One minute to one day
	const maxDispatchTimeout = 1440
	if c.Production.DispatchTimeoutMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "production.dispatch_timeout_minutes",
			Value:   c.Production.DispatchTimeoutMinutes,
			Message: "must be at least 1 minute",
		})
	}
	if c.Production.DispatchTimeoutMinutes > maxDispatchTimeout {
		errors = append(errors, ValidationError{
			Field:   "production.dispatch_timeout_minutes",
			Value:   c.Production.DispatchTimeoutMinutes,
			Message: fmt.Sprintf("exceeds maximum of %d minutes (1 day)", maxDispatchTimeout),
		})
	}

	if !slices.Contains(ValidMergeConflictPolicies(), c.Production.MergeConflictPolicy) {
		errors = append(errors, ValidationError{
			Field:   "production.merge_conflict_policy",
			Value:   c.Production.MergeConflictPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidMergeConflictPolicies(), ", ")),
		})
	}

	if !slices.Contains(ValidErrorBudgets(), c.Production.ErrorBudget) {
		errors = append(errors, ValidationError{
			Field:   "production.error_budget",
			Value:   c.Production.ErrorBudget,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidErrorBudgets(), ", ")),
		})
	}

	if c.Production.MaxConsecutiveErrors < 1 {
		errors = append(errors, ValidationError{
			Field:   "production.max_consecutive_errors",
			Value:   c.Production.MaxConsecutiveErrors,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateFixture validates the FixtureConfig
func (c *Config) validateFixture() []ValidationError {
	var errors []ValidationError

	if !IsValidFixtureKind(c.Fixture.Kind) {
		errors = append(errors, ValidationError{
			Field:   "fixture.kind",
			Value:   c.Fixture.Kind,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFixtureKinds(), ", ")),
		})
	}

	if c.Fixture.Kind == "clone" && c.Fixture.Source == "" {
		errors = append(errors, ValidationError{
			Field:   "fixture.source",
			Value:   c.Fixture.Source,
			Message: "required when fixture.kind is \"clone\"",
		})
	}

	return errors
}

// validateGate validates the GateConfig
func (c *Config) validateGate() []ValidationError {
	var errors []ValidationError

	const maxVerificationTimeout = 60
	if c.Gate.VerificationTimeoutMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "gate.verification_timeout_minutes",
			Value:   c.Gate.VerificationTimeoutMinutes,
			Message: "must be at least 1 minute",
		})
	}
	if c.Gate.VerificationTimeoutMinutes > maxVerificationTimeout {
		errors = append(errors, ValidationError{
			Field:   "gate.verification_timeout_minutes",
			Value:   c.Gate.VerificationTimeoutMinutes,
			Message: fmt.Sprintf("exceeds maximum of %d minutes", maxVerificationTimeout),
		})
	}

	if c.Gate.ApprovalPolicy != "" && !slices.Contains(ValidApprovalPolicies(), c.Gate.ApprovalPolicy) {
		errors = append(errors, ValidationError{
			Field:   "gate.approval_policy",
			Value:   c.Gate.ApprovalPolicy,
			Message: fmt.Sprintf("must be empty or one of: %s", strings.Join(ValidApprovalPolicies(), ", ")),
		})
	}

	return errors
}

// validateAssembly validates the AssemblyConfig
func (c *Config) validateAssembly() []ValidationError {
	var errors []ValidationError

	const maxMergeTimeout = 60
	if c.Assembly.MergeTimeoutMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "assembly.merge_timeout_minutes",
			Value:   c.Assembly.MergeTimeoutMinutes,
			Message: "must be at least 1 minute",
		})
	}
	if c.Assembly.MergeTimeoutMinutes > maxMergeTimeout {
		errors = append(errors, ValidationError{
			Field:   "assembly.merge_timeout_minutes",
			Value:   c.Assembly.MergeTimeoutMinutes,
			Message: fmt.Sprintf("exceeds maximum of %d minutes", maxMergeTimeout),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at least 1 MB",
		})
	}
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %d MB", maxLogSizeMB),
		})
	}

	const maxLogBackups = 100
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups > maxLogBackups {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: fmt.Sprintf("exceeds maximum of %d", maxLogBackups),
		})
	}

	return errors
}
