// Package station models the workstation: the isolated execution
// environment a work order is produced in. A workstation owns a fixture,
// optionally references an SOP, and walks a commission, produce,
// checkpoint, decommission lifecycle.
package station

import (
	"context"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/fixture"
	"github.com/kaizengine/shopfloor/internal/logging"
	"github.com/kaizengine/shopfloor/internal/sop"
)

// State is a workstation lifecycle state.
type State string

const (
	StateUncommissioned State = "uncommissioned"
	StateCommissioned   State = "commissioned"
	StateProducing      State = "producing"
	StateCheckpoint     State = "checkpoint"
	StateDecommissioned State = "decommissioned"
)

// Hook observes workstation lifecycle transitions. Implementations must
// tolerate being called from any goroutine the station runs on.
type Hook interface {
	// PreCommission runs before fixture setup.
	PreCommission(ws *Workstation) error
	// PostProduction runs before fixture teardown.
	PostProduction(ws *Workstation) error
	// OnCheckpoint runs after a checkpoint that produced a commit.
	OnCheckpoint(ws *Workstation, commitHash string) error
}

// Workstation is the isolated execution environment for one work order.
// The SOP pointer is shared, never copied: spawned children reference
// the same immutable procedure.
type Workstation struct {
	fixture      fixture.Fixture
	sop          *sop.SOP
	capabilities Capabilities
	hooks        []Hook
	logger       *logging.Logger

	state State
	path  string
}

// Option configures a Workstation at construction.
type Option func(*Workstation)

// WithSOP attaches a Standard Operating Procedure, materialized at
// commission time.
func WithSOP(s *sop.SOP) Option {
	return func(ws *Workstation) { ws.sop = s }
}

// WithCapabilities sets the workstation's routing capabilities.
func WithCapabilities(c Capabilities) Option {
	return func(ws *Workstation) { ws.capabilities = c }
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks ...Hook) Option {
	return func(ws *Workstation) { ws.hooks = append(ws.hooks, hooks...) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(ws *Workstation) { ws.logger = logger }
}

// New returns an uncommissioned Workstation over the given fixture.
func New(f fixture.Fixture, opts ...Option) *Workstation {
	ws := &Workstation{
		fixture:      f,
		capabilities: DefaultCapabilities(),
		logger:       logging.NopLogger(),
		state:        StateUncommissioned,
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Commission sets the workstation up: pre-commission hooks, fixture
// setup, then SOP materialization and pre-conditions. Pre-condition
// failures are logged as warnings and do not block commissioning.
// Returns the working directory path.
func (ws *Workstation) Commission(ctx context.Context) (string, error) {
	if ws.state == StateDecommissioned {
		return "", errors.ErrStationDecommissioned
	}

	for _, h := range ws.hooks {
		if err := h.PreCommission(ws); err != nil {
			return "", err
		}
	}

	path, err := ws.fixture.Setup()
	if err != nil {
		return "", err
	}
	ws.path = path

	if ws.sop != nil {
		if err := ws.sop.Materialize(path); err != nil {
			return "", err
		}
		for _, failure := range ws.sop.RunPreConditions(ctx, path) {
			ws.logger.Warn("SOP pre-condition failed", "sop", ws.sop.Name, "detail", failure)
		}
		ws.capabilities.SOPName = ws.sop.Name
	}

	ws.state = StateCommissioned
	ws.logger.Debug("workstation commissioned", "path", path, "fixture", string(ws.fixture.Kind()))
	return path, nil
}

// Checkpoint snapshots the workpiece. Returns the commit hash, or ""
// when the working tree was already clean.
func (ws *Workstation) Checkpoint(message string) (string, error) {
	if ws.state == StateDecommissioned {
		return "", errors.ErrStationDecommissioned
	}

	prev := ws.state
	ws.state = StateCheckpoint
	defer func() { ws.state = prev }()

	hash, err := ws.fixture.Checkpoint(message)
	if err != nil {
		return "", err
	}
	if hash != "" {
		for _, h := range ws.hooks {
			if err := h.OnCheckpoint(ws, hash); err != nil {
				ws.logger.Warn("checkpoint hook failed", "error", err)
			}
		}
	}
	return hash, nil
}

// Decommission tears the workstation down. Post-production hook failures
// are logged but never abort teardown. Idempotent.
func (ws *Workstation) Decommission() error {
	if ws.state == StateDecommissioned {
		return nil
	}

	for _, h := range ws.hooks {
		if err := h.PostProduction(ws); err != nil {
			ws.logger.Warn("post-production hook failed", "error", err)
		}
	}

	err := ws.fixture.Teardown()
	ws.state = StateDecommissioned
	return err
}

// Spawn forks the fixture and returns a child workstation sharing this
// station's SOP, capabilities, and hooks. The child is uncommissioned.
func (ws *Workstation) Spawn(name string) (*Workstation, error) {
	if ws.state == StateDecommissioned {
		return nil, errors.ErrStationDecommissioned
	}

	child, err := ws.fixture.Fork(name)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithCapabilities(ws.capabilities),
		WithHooks(ws.hooks...),
		WithLogger(ws.logger),
	}
	if ws.sop != nil {
		opts = append(opts, WithSOP(ws.sop))
	}
	return New(child, opts...), nil
}

// Path returns the working directory, empty before commission.
func (ws *Workstation) Path() string { return ws.path }

// State returns the current lifecycle state.
func (ws *Workstation) State() State { return ws.state }

// SOP returns the attached procedure, nil when none.
func (ws *Workstation) SOP() *sop.SOP { return ws.sop }

// Fixture returns the underlying fixture.
func (ws *Workstation) Fixture() fixture.Fixture { return ws.fixture }

// Capabilities returns the routing capability set.
func (ws *Workstation) Capabilities() Capabilities { return ws.capabilities }

// SetProducing marks the station as actively producing. The orchestrator
// flips this around dispatch so observers see an accurate state.
func (ws *Workstation) SetProducing(active bool) {
	switch {
	case active && ws.state == StateCommissioned:
		ws.state = StateProducing
	case !active && ws.state == StateProducing:
		ws.state = StateCommissioned
	}
}
