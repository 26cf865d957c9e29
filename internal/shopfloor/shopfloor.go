// Package shopfloor drives the production pipeline: routing, layered
// dispatch, quality gating, assembly, and the bounded Kaizen rework loop.
package shopfloor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/kaizengine/shopfloor/internal/assembly"
	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/gate"
	"github.com/kaizengine/shopfloor/internal/hooks"
	"github.com/kaizengine/shopfloor/internal/logging"
	"github.com/kaizengine/shopfloor/internal/order"
	"github.com/kaizengine/shopfloor/internal/routing"
	"github.com/kaizengine/shopfloor/internal/station"
	"github.com/kaizengine/shopfloor/internal/telemetry"
)

// ShopFloor orchestrates a production run over one parent workstation.
type ShopFloor struct {
	parent   *station.Workstation
	producer Producer
	gates    []gate.Gate
	assembly *assembly.Station
	opts     *Options

	logger   *logging.Logger
	metrics  *telemetry.Metrics
	notifier *hooks.Notifier

	queue *order.Queue
}

// Option configures a ShopFloor.
type Option func(*ShopFloor)

// WithGates attaches cascading quality gates, run in declared order.
func WithGates(gates ...gate.Gate) Option {
	return func(s *ShopFloor) { s.gates = append(s.gates, gates...) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *ShopFloor) { s.logger = logger }
}

// WithMetrics attaches an optional metrics handle.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *ShopFloor) { s.metrics = m }
}

// WithNotifier attaches an optional lifecycle notifier.
func WithNotifier(n *hooks.Notifier) Option {
	return func(s *ShopFloor) { s.notifier = n }
}

// WithMergeTimeout bounds each assembly merge. Zero keeps the default.
func WithMergeTimeout(d time.Duration) Option {
	return func(s *ShopFloor) { s.assembly.MergeTimeout = d }
}

// New constructs a ShopFloor over the parent workstation. A nil opts
// selects the defaults; out-of-range values are normalized.
func New(parent *station.Workstation, producer Producer, opts *Options, options ...Option) *ShopFloor {
	if opts == nil {
		opts = DefaultOptions()
	}
	opts.normalize()

	s := &ShopFloor{
		parent:   parent,
		producer: producer,
		assembly: &assembly.Station{},
		opts:     opts,
		logger:   logging.NopLogger(),
		queue:    order.NewQueue(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.assembly.Metrics = s.metrics
	return s
}

// run carries the mutable state of one Produce call.
type run struct {
	id      string
	logger  *logging.Logger
	orders  map[int]*order.WorkOrder
	done    map[int]bool
	details map[int]string

	attempts    int
	reworks     int
	consecErr   int
	haltedOn    error
	exhaustedBy error
}

// Produce executes the full pipeline for one task. Routing failures
// (malformed breakdown, dependency cycle) are fatal and return an error
// with no report. Everything after routing is accounted for in the
// report: when a bound is exhausted the run is ABORTED with every
// outstanding work order marked failed or blocked, never dropped.
func (s *ShopFloor) Produce(ctx context.Context, task, breakdown string) (*Report, error) {
	start := time.Now()

	orders, err := routing.ParseWorkOrders(breakdown)
	if err != nil {
		return nil, err
	}
	// Validates acyclicity up front; dispatch order comes from the queue.
	layers, err := routing.BuildLayers(orders)
	if err != nil {
		return nil, err
	}

	r := &run{
		id:      uuid.NewString(),
		orders:  make(map[int]*order.WorkOrder, len(orders)),
		done:    make(map[int]bool),
		details: make(map[int]string),
	}
	for _, wo := range orders {
		r.orders[wo.Index] = wo
	}
	r.logger = s.logger.WithRun(r.id)

	r.logger.Info("production started",
		"task", task, "orders", len(orders), "layers", len(layers))
	s.metrics.CountWorkOrders(len(orders))
	s.notifier.Emit(hooks.PhaseTaskStart, hooks.Context{RunID: r.id, Detail: task})

	if s.parent.State() == station.StateUncommissioned {
		if _, err := s.parent.Commission(ctx); err != nil {
			return nil, err
		}
	}

	cycles := 0
	for cycle := 1; cycle <= s.opts.MaxCycles; cycle++ {
		cycles = cycle
		cycleStart := time.Now()
		s.notifier.Emit(hooks.PhaseCycleStart, hooks.Context{RunID: r.id, Cycle: cycle})
		r.logger.Info("cycle started", "cycle", cycle, "queued", s.pendingCount(r))

		s.runCycle(ctx, r, cycle)

		s.metrics.RecordCycleTime(time.Since(cycleStart))
		s.notifier.Emit(hooks.PhaseCycleEnd, hooks.Context{RunID: r.id, Cycle: cycle})

		if s.allDone(r) {
			report := buildReport(r.id, task, StateDone, r.orders, r.details,
				cycles, r.attempts, r.reworks, time.Since(start), nil)
			s.notifier.Emit(hooks.PhaseTaskEnd, hooks.Context{RunID: r.id})
			r.logger.Info("production done", "cycles", cycles, "attempts", r.attempts, "reworks", r.reworks)
			return report, nil
		}

		if r.haltedOn != nil || r.exhaustedBy != nil {
			break
		}
		if cycle < s.opts.MaxCycles {
			s.rework(r, cycle)
		}
	}

	reason := r.exhaustedBy
	if reason == nil {
		reason = r.haltedOn
	}
	if reason == nil {
		reason = errors.ErrMaxCyclesExceeded
	}
	s.finalizeOutstanding(r)

	report := buildReport(r.id, task, StateAborted, r.orders, r.details,
		cycles, r.attempts, r.reworks, time.Since(start), reason)
	s.notifier.Emit(hooks.PhaseTaskEnd, hooks.Context{RunID: r.id, Err: reason})
	r.logger.Warn("production aborted", "reason", reason, "cycles", cycles, "attempts", r.attempts)
	return report, nil
}

// runCycle admits all outstanding work to the queue and drains it in
// ready batches. Each batch is a layer: mutually independent orders whose
// dependencies are all done.
func (s *ShopFloor) runCycle(ctx context.Context, r *run, cycle int) {
	for _, wo := range s.outstanding(r) {
		s.queue.Enqueue(wo)
	}

	for !s.queue.Empty() {
		batch := s.queue.DequeueReady(r.done)
		if len(batch) == 0 {
			// Remaining orders depend on work that failed this cycle.
			s.drainQueue()
			return
		}

		if !s.withinIterationBudget(r, batch) {
			s.drainQueue()
			return
		}

		s.dispatchLayer(ctx, r, cycle, batch)

		if r.haltedOn != nil || r.exhaustedBy != nil {
			s.drainQueue()
			return
		}
	}
}

// withinIterationBudget reports whether the batch fits the remaining
// attempt budget, recording exhaustion when it does not.
func (s *ShopFloor) withinIterationBudget(r *run, batch []*order.WorkOrder) bool {
	if r.attempts+len(batch) > s.opts.MaxIterations {
		r.exhaustedBy = errors.ErrMaxIterationsExceeded
		return false
	}
	return true
}

// dispatchLayer executes one layer: on the parent for a single order,
// across spawned children for a parallel layer. Gates run per completed
// station; passing children are assembled into the parent.
func (s *ShopFloor) dispatchLayer(ctx context.Context, r *run, cycle int, layer []*order.WorkOrder) {
	if len(layer) == 1 {
		s.dispatchSequential(ctx, r, cycle, layer[0])
		return
	}
	s.dispatchParallel(ctx, r, cycle, layer)
}

func (s *ShopFloor) dispatchSequential(ctx context.Context, r *run, cycle int, wo *order.WorkOrder) {
	if !s.applyOutcome(r, wo, s.dispatchOne(ctx, r, cycle, wo, s.parent)) {
		return
	}

	inspection := gate.Chain(ctx, s.parent, s.gates...)
	s.metrics.CountGateInspection(inspection.Passed)
	if !inspection.Passed {
		s.failOrder(r, wo, "gate_failure", gateDetail(inspection))
		return
	}

	hash, err := s.parent.Checkpoint(fmt.Sprintf("WO-%d: %s", wo.Index, firstLine(wo.Description)))
	if err != nil {
		s.failOrder(r, wo, "checkpoint_failure", err.Error())
		return
	}
	if hash != "" {
		s.notifier.Emit(hooks.PhaseCheckpoint, hooks.Context{RunID: r.id, OrderIndex: wo.Index, Path: s.parent.Path(), Detail: hash})
	}
	s.completeOrder(r, wo)
}

func (s *ShopFloor) dispatchParallel(ctx context.Context, r *run, cycle int, layer []*order.WorkOrder) {
	if _, err := s.parent.Checkpoint("pre-spawn: layer baseline"); err != nil {
		for _, wo := range layer {
			s.failOrder(r, wo, "fixture_failure", err.Error())
		}
		return
	}

	// Spawn and commission serially; production runs concurrently below.
	children := make([]*station.Workstation, len(layer))
	for i, wo := range layer {
		child, err := s.parent.Spawn(fmt.Sprintf("wo-%d", wo.Index))
		if err == nil {
			_, err = child.Commission(ctx)
		}
		if err != nil {
			s.failOrder(r, wo, "fixture_failure", err.Error())
			continue
		}
		children[i] = child
	}

	outcomes := make([]dispatchOutcome, len(layer))

	p := pool.New().WithMaxGoroutines(s.opts.ParallelLimit)
	for i, wo := range layer {
		if children[i] == nil {
			continue
		}
		i, wo := i, wo
		p.Go(func() {
			outcomes[i] = s.dispatchOne(ctx, r, cycle, wo, children[i])
		})
	}
	p.Wait()

	// Barrier passed: fold outcomes into run state, then gate, assemble,
	// and decommission, all serially.
	for i, wo := range layer {
		child := children[i]
		if child == nil {
			continue
		}
		if !s.applyOutcome(r, wo, outcomes[i]) {
			s.decommission(r, child)
			continue
		}

		inspection := gate.Chain(ctx, child, s.gates...)
		s.metrics.CountGateInspection(inspection.Passed)
		if !inspection.Passed {
			s.failOrder(r, wo, "gate_failure", gateDetail(inspection))
			s.decommission(r, child)
			continue
		}

		integration := s.assembly.Integrate(ctx, s.parent, child)
		switch integration.Status {
		case assembly.StatusSuccess:
			r.logger.WithWorkOrder(wo.Index).WithStage("assembly").Info("integrated", "detail", integration.Message)
			s.completeOrder(r, wo)
		case assembly.StatusConflict:
			s.failOrder(r, wo, "merge_conflict", integration.Message)
			if s.opts.MergeConflictPolicy == ConflictHalt {
				r.haltedOn = errors.ErrHaltedOnConflict
			}
		default:
			s.failOrder(r, wo, "merge_failure", integration.Message)
		}
		s.decommission(r, child)
	}
}

// dispatchOutcome is what one dispatch wants recorded against run state.
// Pool goroutines only fill one in; applyOutcome folds it into the run
// serially behind the layer barrier, so dispatchOne never races on the
// iteration budget, failure details, or the circuit breaker.
type dispatchOutcome struct {
	result *order.Result
	err    error  // dispatch-level error, counts toward the circuit breaker
	kind   string // failure classification when the work itself was rejected
	detail string
}

// dispatchOne runs the producer for a single order on the given station.
// It mutates only the work order it owns and the station it was handed;
// run-level accounting happens in applyOutcome.
func (s *ShopFloor) dispatchOne(ctx context.Context, r *run, cycle int, wo *order.WorkOrder, ws *station.Workstation) dispatchOutcome {
	wo.Status = order.StatusRunning
	wo.Attempts++
	wo.DispatchedAt = time.Now()
	s.metrics.CountDispatch()
	s.notifier.Emit(hooks.PhasePreDispatch, hooks.Context{RunID: r.id, Cycle: cycle, OrderIndex: wo.Index, Path: ws.Path()})

	logger := r.logger.WithWorkOrder(wo.Index).WithStage("production")
	logger.Info("dispatching", "cycle", cycle, "attempt", wo.Attempts, "station", ws.Path())

	if !routing.MatchCapabilities(wo.RequiredCapabilities, ws.Capabilities().MatchMap()) {
		err := errors.NewDispatchError(wo.Index, errors.New("no workstation satisfies required capabilities"))
		return dispatchOutcome{err: err}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	defer cancel()

	ws.SetProducing(true)
	result, err := s.producer.Produce(dispatchCtx, wo, ws)
	ws.SetProducing(false)

	s.notifier.Emit(hooks.PhasePostDispatch, hooks.Context{RunID: r.id, Cycle: cycle, OrderIndex: wo.Index, Err: err})

	if err != nil {
		if dispatchCtx.Err() == context.DeadlineExceeded && !errors.IsTimeout(err) {
			err = errors.NewDispatchTimeout(wo.Index, dispatchCtx.Err())
		}
		return dispatchOutcome{err: err}
	}

	if !result.OK() {
		detail := result.Detail
		if detail == "" {
			detail = firstLine(result.Output)
		}
		return dispatchOutcome{result: result, kind: "production_failure", detail: detail}
	}

	logger.Info("produced", "duration", result.Duration.String())
	// Checkpoint the child workpiece so assembly has a commit to merge.
	if ws != s.parent {
		hash, err := ws.Checkpoint(fmt.Sprintf("WO-%d: %s", wo.Index, firstLine(wo.Description)))
		if err != nil {
			return dispatchOutcome{result: result, kind: "checkpoint_failure", detail: err.Error()}
		}
		if hash != "" {
			s.notifier.Emit(hooks.PhaseCheckpoint, hooks.Context{RunID: r.id, OrderIndex: wo.Index, Path: ws.Path(), Detail: hash})
		}
	}
	return dispatchOutcome{result: result}
}

// applyOutcome folds one dispatch outcome into run state and reports
// whether the order is ready for gating. Only ever called serially.
func (s *ShopFloor) applyOutcome(r *run, wo *order.WorkOrder, out dispatchOutcome) bool {
	r.attempts++
	if out.err != nil {
		s.recordDispatchError(r, wo, out.err)
		return false
	}
	r.consecErr = 0
	if out.kind != "" {
		s.failOrder(r, wo, out.kind, out.detail)
		return false
	}
	return true
}

func (s *ShopFloor) recordDispatchError(r *run, wo *order.WorkOrder, err error) {
	s.metrics.CountDispatchError()
	s.notifier.Emit(hooks.PhaseError, hooks.Context{RunID: r.id, OrderIndex: wo.Index, Err: err})
	s.failOrder(r, wo, "dispatch_error", err.Error())

	r.consecErr++
	if s.opts.ErrorBudget == BudgetSeparate && r.consecErr >= s.opts.MaxConsecutiveErrors {
		r.exhaustedBy = fmt.Errorf("circuit breaker: %d consecutive dispatch errors: %w", r.consecErr, err)
	}
}

func (s *ShopFloor) completeOrder(r *run, wo *order.WorkOrder) {
	wo.Status = order.StatusDone
	wo.CompletedAt = time.Now()
	r.done[wo.Index] = true
	delete(r.details, wo.Index)
	r.logger.Info("work order done", "order", wo.Index, "attempts", wo.Attempts)
}

func (s *ShopFloor) failOrder(r *run, wo *order.WorkOrder, kind, detail string) {
	wo.Status = order.StatusFailed
	wo.SourceRef = kind
	r.details[wo.Index] = detail
	r.logger.Warn("work order failed", "order", wo.Index, "kind", kind, "detail", firstLine(detail))
}

// rework re-enqueues this cycle's failures as feedback work with the
// failure context appended, so the next attempt sees what went wrong.
func (s *ShopFloor) rework(r *run, cycle int) {
	for _, wo := range s.orderedOrders(r) {
		if wo.Status != order.StatusFailed {
			continue
		}
		wo.Origin = order.OriginFeedback
		wo.Status = order.StatusPending
		if detail := r.details[wo.Index]; detail != "" {
			wo.Description = augmentDescription(wo.Description, detail)
		}
		r.reworks++
		s.metrics.CountRework()
		r.logger.Info("rework enqueued", "order", wo.Index, "cycle", cycle, "ref", wo.SourceRef)
	}
}

// finalizeOutstanding marks every non-done order with its terminal
// status: failed orders stay failed, orders waiting on failed work are
// blocked.
func (s *ShopFloor) finalizeOutstanding(r *run) {
	for _, wo := range r.orders {
		if r.done[wo.Index] || wo.Status == order.StatusFailed {
			continue
		}
		wo.Status = order.StatusBlocked
		if r.details[wo.Index] == "" {
			r.details[wo.Index] = "blocked: upstream work order did not complete"
		}
	}
}

func (s *ShopFloor) outstanding(r *run) []*order.WorkOrder {
	var out []*order.WorkOrder
	for _, wo := range s.orderedOrders(r) {
		if !r.done[wo.Index] && wo.Status != order.StatusFailed {
			out = append(out, wo)
		}
	}
	return out
}

// orderedOrders returns the run's orders in index order for determinism.
func (s *ShopFloor) orderedOrders(r *run) []*order.WorkOrder {
	out := make([]*order.WorkOrder, 0, len(r.orders))
	for i := 0; i < len(r.orders); i++ {
		if wo, ok := r.orders[i]; ok {
			out = append(out, wo)
		}
	}
	return out
}

func (s *ShopFloor) allDone(r *run) bool {
	return len(r.done) == len(r.orders)
}

func (s *ShopFloor) pendingCount(r *run) int {
	return len(r.orders) - len(r.done)
}

func (s *ShopFloor) drainQueue() {
	for s.queue.Dequeue() != nil {
	}
}

func (s *ShopFloor) decommission(r *run, ws *station.Workstation) {
	if err := ws.Decommission(); err != nil {
		r.logger.Warn("decommission failed", "path", ws.Path(), "error", err)
	}
}

func gateDetail(inspection gate.InspectionResult) string {
	if len(inspection.Defects) > 0 {
		return strings.Join(inspection.Defects, "\n")
	}
	return inspection.Details
}

func augmentDescription(description, detail string) string {
	const limit = 500
	if len(detail) > limit {
		detail = detail[:limit]
	}
	return description + "\n\nPrevious attempt failed:\n" + detail
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
