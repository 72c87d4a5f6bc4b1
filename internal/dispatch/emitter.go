package dispatch

import (
	"fmt"

	"github.com/neuroplastio/neio-turbo/internal/device"
	"go.uber.org/zap"
)

// Output is one primitive effect: a key or button edge, or a single move/scroll step.
type Output struct {
	Action device.OutputAction
	Down   bool
}

func (o Output) String() string {
	switch o.Action.Kind {
	case device.ActionMouseMove, device.ActionMouseScroll:
		return o.Action.String()
	}
	if o.Down {
		return o.Action.String() + " down"
	}
	return o.Action.String() + " up"
}

// Emitter performs outputs on the host. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(out Output) error
}

// LogEmitter writes every output to the log instead of the host.
type LogEmitter struct {
	log *zap.Logger
}

func NewLogEmitter(log *zap.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(out Output) error {
	if out.Action.Kind == device.ActionMultiple || out.Action.Kind == device.ActionSequential {
		return fmt.Errorf("composite action %s cannot be emitted directly", out.Action)
	}
	e.log.Debug("Output", zap.Stringer("output", out))
	return nil
}
