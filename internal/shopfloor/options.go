package shopfloor

import "time"

// MergeConflictPolicy decides how an assembly conflict is handled.
type MergeConflictPolicy string

const (
	// ConflictRework re-enqueues the conflicted work order as feedback,
	// like any other defect.
	ConflictRework MergeConflictPolicy = "rework"
	// ConflictHalt stops the run after the current cycle so the conflict
	// can be resolved manually.
	ConflictHalt MergeConflictPolicy = "halt"
)

// ErrorBudget decides how dispatch errors are bounded.
type ErrorBudget string

const (
	// BudgetShared counts dispatch errors against the same cycle and
	// iteration bounds as ordinary failures.
	BudgetShared ErrorBudget = "shared"
	// BudgetSeparate adds a consecutive-dispatch-error circuit breaker on
	// top of the shared bounds.
	BudgetSeparate ErrorBudget = "separate"
)

// Options bound and tune a production run.
type Options struct {
	// MaxCycles caps pipeline cycles, the initial pass included.
	MaxCycles int
	// MaxIterations caps total dispatch attempts across all cycles.
	MaxIterations int
	// ParallelLimit caps concurrent dispatches within a layer.
	ParallelLimit int
	// DispatchTimeout bounds each producer call.
	DispatchTimeout time.Duration
	// MergeConflictPolicy is rework or halt.
	MergeConflictPolicy MergeConflictPolicy
	// ErrorBudget is shared or separate.
	ErrorBudget ErrorBudget
	// MaxConsecutiveErrors arms the circuit breaker under BudgetSeparate.
	MaxConsecutiveErrors int
}

// DefaultOptions returns the default run bounds.
func DefaultOptions() *Options {
	return &Options{
		MaxCycles:            5,
		MaxIterations:        100,
		ParallelLimit:        4,
		DispatchTimeout:      10 * time.Minute,
		MergeConflictPolicy:  ConflictRework,
		ErrorBudget:          BudgetShared,
		MaxConsecutiveErrors: 3,
	}
}

// normalize clamps out-of-range values to their defaults.
func (o *Options) normalize() {
	def := DefaultOptions()
	if o.MaxCycles < 1 {
		o.MaxCycles = def.MaxCycles
	}
	if o.MaxIterations < 1 {
		o.MaxIterations = def.MaxIterations
	}
	if o.ParallelLimit < 1 {
		o.ParallelLimit = def.ParallelLimit
	}
	if o.DispatchTimeout <= 0 {
		o.DispatchTimeout = def.DispatchTimeout
	}
	if o.MergeConflictPolicy != ConflictHalt {
		o.MergeConflictPolicy = ConflictRework
	}
	if o.ErrorBudget != BudgetSeparate {
		o.ErrorBudget = BudgetShared
	}
	if o.MaxConsecutiveErrors < 1 {
		o.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
}
