// Package hooks provides lifecycle notification for pipeline observers.
// Listeners are advisory: a failing or panicking listener never disturbs
// the run that emitted the event.
package hooks

import (
	"fmt"

	"github.com/kaizengine/shopfloor/internal/logging"
)

// Phase identifies a point in the pipeline lifecycle.
type Phase string

const (
	PhaseCycleStart   Phase = "cycle_start"
	PhaseCycleEnd     Phase = "cycle_end"
	PhasePreDispatch  Phase = "pre_dispatch"
	PhasePostDispatch Phase = "post_dispatch"
	PhaseTaskStart    Phase = "task_start"
	PhaseTaskEnd      Phase = "task_end"
	PhaseCheckpoint   Phase = "checkpoint"
	PhaseError        Phase = "error"
)

// Context carries the event payload. Zero-value fields mean not applicable.
type Context struct {
	RunID      string
	Cycle      int
	OrderIndex int
	Path       string
	Detail     string
	Err        error
}

// Listener receives lifecycle events.
type Listener interface {
	OnHook(phase Phase, ctx Context) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(phase Phase, ctx Context) error

func (f ListenerFunc) OnHook(phase Phase, ctx Context) error { return f(phase, ctx) }

// Notifier fans events out to registered listeners in registration order.
type Notifier struct {
	listeners []Listener
	logger    *logging.Logger
}

// NewNotifier returns a Notifier. A nil logger disables failure logging.
func NewNotifier(logger *logging.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Register appends a listener. Not safe for concurrent use with Emit;
// register everything before the run starts.
func (n *Notifier) Register(l Listener) {
	n.listeners = append(n.listeners, l)
}

// Emit delivers the event to every listener. Listener errors and panics
// are logged and swallowed.
func (n *Notifier) Emit(phase Phase, ctx Context) {
	if n == nil {
		return
	}
	for _, l := range n.listeners {
		n.deliver(l, phase, ctx)
	}
}

func (n *Notifier) deliver(l Listener, phase Phase, ctx Context) {
	defer func() {
		if r := recover(); r != nil {
			n.logFailure(phase, fmt.Errorf("listener panic: %v", r))
		}
	}()
	if err := l.OnHook(phase, ctx); err != nil {
		n.logFailure(phase, err)
	}
}

func (n *Notifier) logFailure(phase Phase, err error) {
	if n.logger != nil {
		n.logger.Warn("hook listener failed", "phase", string(phase), "error", err)
	}
}
