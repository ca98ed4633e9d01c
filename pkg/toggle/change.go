package toggle

import (
	"context"
	"time"

	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

// Change describes a mutation that other instances should mirror.
type Change struct {
	ID          string                  `json:"id"`
	Origin      string                  `json:"origin"`
	Feature     string                  `json:"feature"`
	Environment environment.Environment `json:"environment"`
	Action      audit.Action            `json:"action"`
	UserID      string                  `json:"user_id"`
	Reason      string                  `json:"reason,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

// Propagator fans changes out to other instances. Failures are logged by
// the engine and never reach the caller of the mutating operation.
type Propagator interface {
	Propagate(ctx context.Context, change Change) error
}

// PropagatorFunc adapts a function to Propagator.
type PropagatorFunc func(ctx context.Context, change Change) error

func (f PropagatorFunc) Propagate(ctx context.Context, change Change) error {
	return f(ctx, change)
}
