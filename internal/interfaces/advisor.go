package interfaces

import (
	"context"

	"swarm-trading-bot/internal/types"
)

// Advisor is any advisory source supplying a directional Signal for a token.
// Name must be stable across calls; it identifies the source in tallies and
// journals. Signal must honor ctx cancellation and return within the
// deadline the aggregator sets, or fail with an error.
type Advisor interface {
	Name() string
	Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error)
}
