// Package telemetry collects run counters and timings. The Metrics handle
// is explicitly optional: every method is a no-op on a nil receiver, so
// callers never guard their instrumentation sites.
package telemetry

import (
	"sync"
	"time"
)

// Metrics accumulates pipeline counters for a single run.
// Safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	workOrders      int
	dispatches      int
	dispatchErrors  int
	reworks         int
	gateInspections int
	gateFailures    int
	mergeConflicts  int

	cycleTimes []time.Duration
}

// New returns an empty Metrics handle.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) add(field *int, n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	*field += n
	m.mu.Unlock()
}

// CountWorkOrders records n work orders entering the pipeline.
func (m *Metrics) CountWorkOrders(n int) {
	if m == nil {
		return
	}
	m.add(&m.workOrders, n)
}

// CountDispatch records one producer dispatch.
func (m *Metrics) CountDispatch() {
	if m == nil {
		return
	}
	m.add(&m.dispatches, 1)
}

// CountDispatchError records one dispatch failure or timeout.
func (m *Metrics) CountDispatchError() {
	if m == nil {
		return
	}
	m.add(&m.dispatchErrors, 1)
}

// CountRework records one work order re-enqueued by the rework loop.
func (m *Metrics) CountRework() {
	if m == nil {
		return
	}
	m.add(&m.reworks, 1)
}

// CountGateInspection records one quality gate inspection and its outcome.
func (m *Metrics) CountGateInspection(passed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.gateInspections++
	if !passed {
		m.gateFailures++
	}
	m.mu.Unlock()
}

// CountMergeConflict records one assembly merge conflict.
func (m *Metrics) CountMergeConflict() {
	if m == nil {
		return
	}
	m.add(&m.mergeConflicts, 1)
}

// RecordCycleTime records the wall time of one pipeline cycle.
func (m *Metrics) RecordCycleTime(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.cycleTimes = append(m.cycleTimes, d)
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	WorkOrders      int
	Dispatches      int
	DispatchErrors  int
	Reworks         int
	GateInspections int
	GateFailures    int
	MergeConflicts  int
	Cycles          int
	TotalCycleTime  time.Duration
}

// Snapshot returns a copy of the current counters. A nil receiver yields
// a zero Snapshot.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var total time.Duration
	for _, d := range m.cycleTimes {
		total += d
	}
	return Snapshot{
		WorkOrders:      m.workOrders,
		Dispatches:      m.dispatches,
		DispatchErrors:  m.dispatchErrors,
		Reworks:         m.reworks,
		GateInspections: m.gateInspections,
		GateFailures:    m.gateFailures,
		MergeConflicts:  m.mergeConflicts,
		Cycles:          len(m.cycleTimes),
		TotalCycleTime:  total,
	}
}
