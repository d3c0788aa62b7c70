package engineobs

import (
	"context"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

// observableEngine wraps an Engine with observability (logging & tracing)
type observableEngine struct {
	engine interfaces.Engine
}

// Compile-time interface check
var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap wraps an engine with observability middleware
func Wrap(engine interfaces.Engine) interfaces.Engine {
	return &observableEngine{engine: engine}
}

// Cycle runs one decision cycle with observability
func (oe *observableEngine) Cycle(ctx context.Context, token string) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Starting decision cycle", "token", token)

	result, err := oe.engine.Cycle(ctx, token)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Decision cycle failed", err, "token", token)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Decision cycle completed",
		"token", token,
		"action", string(result.Decision.Action),
		"reason", result.Reason,
		"fills", len(result.Fills),
	)
	return result, nil
}
