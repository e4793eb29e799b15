package compile

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
)

// Throttled rate-limits calls to a remote or expensive compilation service.
// The fidelity-aware policy compiles every (task, node) pair, so an unthrottled
// run can flood a shared compiler. Waiting happens in wall-clock time and does
// not affect the simulated clock.
type Throttled struct {
	next    Compiler
	limiter *rate.Limiter
}

// NewThrottled allows perSecond calls with the given burst. A non-positive
// perSecond disables limiting.
func NewThrottled(next Compiler, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Compile implements Compiler. A cancelled context while waiting is returned
// as a compilation failure.
func (t *Throttled) Compile(ctx context.Context, payload any, nodeID string) (*circuit.Graph, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for compile slot: %w", err)
	}
	return t.next.Compile(ctx, payload, nodeID)
}
