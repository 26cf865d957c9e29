package shopfloor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/order"
	"github.com/kaizengine/shopfloor/internal/station"
)

// Producer executes one work order inside a commissioned workstation.
// The reasoning loop behind it is an external collaborator; the engine
// only consumes the result contract. The passed context carries the
// per-dispatch timeout.
type Producer interface {
	Produce(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error)

func (f ProducerFunc) Produce(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error) {
	return f(ctx, wo, ws)
}

// CommandProducer runs a configured shell command in the workstation's
// working directory for every dispatch. The work order is passed through
// the environment:
//
//	SHOPFLOOR_ORDER_INDEX        zero-based index
//	SHOPFLOOR_ORDER_DESCRIPTION  full description text
//	SHOPFLOOR_ORDER_ATTEMPT      1-based attempt counter
//
// A nonzero exit is a work failure (eligible for rework); a command that
// cannot start or exceeds the timeout is a dispatch error.
type CommandProducer struct {
	Command string
}

func (p *CommandProducer) Produce(ctx context.Context, wo *order.WorkOrder, ws *station.Workstation) (*order.Result, error) {
	if p.Command == "" {
		return nil, errors.NewDispatchError(wo.Index, errors.New("command producer has no command configured"))
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = ws.Path()
	cmd.Env = append(os.Environ(),
		"SHOPFLOOR_ORDER_INDEX="+strconv.Itoa(wo.Index),
		"SHOPFLOOR_ORDER_DESCRIPTION="+wo.Description,
		"SHOPFLOOR_ORDER_ATTEMPT="+strconv.Itoa(wo.Attempts),
	)

	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewDispatchTimeout(wo.Index, ctx.Err())
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, errors.NewDispatchError(wo.Index, err)
		}
		return &order.Result{
			Index:    wo.Index,
			Status:   order.ResultFailure,
			Output:   string(output),
			Detail:   fmt.Sprintf("command exited nonzero: %v", err),
			Duration: elapsed,
		}, nil
	}

	return &order.Result{
		Index:    wo.Index,
		Status:   order.ResultSuccess,
		Output:   string(output),
		Duration: elapsed,
	}, nil
}
