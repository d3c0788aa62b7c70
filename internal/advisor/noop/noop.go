package noop

import (
	"context"

	"swarm-trading-bot/internal/types"
)

// Advisor is a fallback source used when no real advisor is configured.
// It always votes HOLD with zero confidence.
type Advisor struct{}

func New() *Advisor { return &Advisor{} }

func (a *Advisor) Name() string { return "noop" }

func (a *Advisor) Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error) {
	return types.Signal{
		Action:     types.ActionHold,
		Confidence: 0,
		Rationale:  "noop_fallback",
	}, nil
}
