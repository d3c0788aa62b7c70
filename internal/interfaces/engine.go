package interfaces

import (
	"context"

	"swarm-trading-bot/internal/types"
)

type Engine interface {
	Cycle(ctx context.Context, token string) (*types.CycleResult, error)
}
