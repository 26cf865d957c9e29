// Package order defines the WorkOrder data model and the priority queue that
// sequences re-admitted work against in-flight decomposition work.
//
// A WorkOrder is the universal unit of work on the shop floor. Routing
// creates work orders from the breakdown text; the orchestrator owns their
// status transitions during dispatch, gating, and rework. A work order is
// never mutated concurrently: exactly one in-flight dispatch owns it at a
// time.
package order

import (
	"time"

	"github.com/kaizengine/shopfloor/internal/errors"
)

// Status represents the lifecycle state of a work order.
type Status string

const (
	// StatusPending indicates dependencies are not yet satisfied.
	StatusPending Status = "pending"
	// StatusReady indicates all dependencies are satisfied.
	StatusReady Status = "ready"
	// StatusRunning indicates the work order is owned by an in-flight dispatch.
	StatusRunning Status = "running"
	// StatusDone indicates terminal success.
	StatusDone Status = "done"
	// StatusFailed indicates terminal failure after the rework budget ran out.
	StatusFailed Status = "failed"
	// StatusBlocked indicates an upstream dependency permanently failed.
	StatusBlocked Status = "blocked"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusBlocked
}

// Origin identifies where a work order came from. It determines queue
// priority when the order is admitted or re-admitted.
type Origin string

const (
	// OriginFeedback marks rework generated by the Kaizen loop. Highest priority.
	OriginFeedback Origin = "feedback"
	// OriginTelemetry marks work triggered by field signals.
	OriginTelemetry Origin = "telemetry"
	// OriginExternal marks externally triggered work (webhooks, tickets, CLI).
	OriginExternal Origin = "external"
	// OriginDecomposition marks work produced by breakdown parsing. Lowest priority.
	OriginDecomposition Origin = "decomposition"
)

// Priority returns the queue priority for the origin class.
// Lower values dequeue first.
func (o Origin) Priority() int {
	switch o {
	case OriginFeedback:
		return 0
	case OriginTelemetry:
		return 1
	case OriginExternal:
		return 2
	default:
		return 3
	}
}

// WorkOrder is a single unit of work with dependency edges into the rest of
// the breakdown. Index is 0-based and stable for the lifetime of the run.
type WorkOrder struct {
	Index       int
	Description string
	DependsOn   []int
	Origin      Origin
	SourceRef   string

	// RequiredCapabilities describes execution requirements matched against
	// the workstation's capabilities before dispatch.
	RequiredCapabilities map[string]any

	Status   Status
	Attempts int

	CreatedAt    time.Time
	DispatchedAt time.Time
	CompletedAt  time.Time
}

// New creates a WorkOrder, validating invariants once at construction:
// non-negative index and non-empty description. Dependency acyclicity is
// checked by routing when layers are built.
func New(index int, description string, dependsOn []int) (*WorkOrder, error) {
	if index < 0 {
		return nil, errors.NewParseError(0, "work order index %d is negative", index)
	}
	if description == "" {
		return nil, errors.NewParseError(0, "work order %d has an empty description", index+1)
	}
	return &WorkOrder{
		Index:       index,
		Description: description,
		DependsOn:   dependsOn,
		Origin:      OriginDecomposition,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// DependsOnSet returns the dependency indices as a set.
func (wo *WorkOrder) DependsOnSet() map[int]bool {
	set := make(map[int]bool, len(wo.DependsOn))
	for _, dep := range wo.DependsOn {
		set[dep] = true
	}
	return set
}

// ReadyGiven reports whether every dependency is in the satisfied set.
func (wo *WorkOrder) ReadyGiven(satisfied map[int]bool) bool {
	for _, dep := range wo.DependsOn {
		if !satisfied[dep] {
			return false
		}
	}
	return true
}

// ResultStatus is the outcome class of a single execution attempt.
type ResultStatus string

const (
	// ResultSuccess indicates the producer completed the work order.
	ResultSuccess ResultStatus = "success"
	// ResultFailure indicates the producer ran but the work was rejected.
	ResultFailure ResultStatus = "failure"
	// ResultError indicates the dispatch itself failed (crash, timeout).
	ResultError ResultStatus = "error"
)

// Result is the immutable outcome of executing one work order. The
// orchestrator owns it after creation.
type Result struct {
	Index        int
	Status       ResultStatus
	Output       string
	FilesChanged []string
	Detail       string
	Duration     time.Duration
}

// OK returns true for a successful result.
func (r *Result) OK() bool {
	return r != nil && r.Status == ResultSuccess
}
