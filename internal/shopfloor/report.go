package shopfloor

import (
	"sort"
	"time"

	"github.com/kaizengine/shopfloor/internal/order"
)

// RunState is the terminal state of a production run.
type RunState string

const (
	// StateDone means every work order reached DONE.
	StateDone RunState = "done"
	// StateAborted means a bound was exhausted or the run was halted with
	// work orders still outstanding.
	StateAborted RunState = "aborted"
)

// OrderReport is one work order's terminal record.
type OrderReport struct {
	Index       int
	Description string
	Origin      order.Origin
	Status      order.Status
	Attempts    int
	// Detail carries the most recent failure context for non-done orders.
	Detail string
}

// Report is the final account of a run. Every work order that entered the
// pipeline appears exactly once, whatever its fate.
type Report struct {
	RunID    string
	Task     string
	State    RunState
	Orders   []OrderReport
	Cycles   int
	Attempts int
	Reworks  int
	Duration time.Duration
	// Reason explains an aborted run: a bound error, a halt on conflict,
	// or a tripped circuit breaker. Nil when State is done.
	Reason error
}

// Failed returns the reports of work orders that did not reach DONE.
func (r *Report) Failed() []OrderReport {
	var failed []OrderReport
	for _, o := range r.Orders {
		if o.Status != order.StatusDone {
			failed = append(failed, o)
		}
	}
	return failed
}

func buildReport(runID, task string, state RunState, orders map[int]*order.WorkOrder, details map[int]string, cycles, attempts, reworks int, duration time.Duration, reason error) *Report {
	reports := make([]OrderReport, 0, len(orders))
	for _, wo := range orders {
		reports = append(reports, OrderReport{
			Index:       wo.Index,
			Description: wo.Description,
			Origin:      wo.Origin,
			Status:      wo.Status,
			Attempts:    wo.Attempts,
			Detail:      details[wo.Index],
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Index < reports[j].Index })

	return &Report{
		RunID:    runID,
		Task:     task,
		State:    state,
		Orders:   reports,
		Cycles:   cycles,
		Attempts: attempts,
		Reworks:  reworks,
		Duration: duration,
		Reason:   reason,
	}
}
