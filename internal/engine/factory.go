package engine

import (
	"context"
	"fmt"
	"time"

	"swarm-trading-bot/internal/consensus"
	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/positions"
	"swarm-trading-bot/internal/risk"
	"swarm-trading-bot/internal/router"
	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/swarm"
)

// New wires the decision pipeline around an already-constructed venue and
// advisor set. The risk gate is seeded from the venue's live balance.
func New(ctx context.Context, cfg *store.Config, venue interfaces.Venue, advisors []interfaces.Advisor) (*Engine, error) {
	balance, err := venue.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed balance from %s: %w", venue.Name(), err)
	}
	logger.Info(ctx, "Risk gate seeded from venue balance", "venue", venue.Name(), "balance_usd", balance)

	gate := risk.NewGate(risk.Config{
		MaxLossUSD:        cfg.Risk.MaxLossUSD,
		MinimumBalanceUSD: cfg.Risk.MinimumBalanceUSD,
		MaxPositionPct:    cfg.Risk.MaxPositionPct,
		PerTokenCapUSD:    cfg.Risk.PerTokenCapUSD,
	}, balance)

	tracker := positions.NewTracker()

	return &Engine{
		cfg:   cfg,
		venue: venue,
		aggregator: swarm.NewAggregator(swarm.Config{
			SourceTimeout:     time.Duration(cfg.Swarm.SourceTimeoutSeconds) * time.Second,
			RoundCeiling:      time.Duration(cfg.Swarm.RoundCeilingSeconds) * time.Second,
			MinimumResponders: cfg.Consensus.MinimumResponders,
		}, advisors),
		consensus: consensus.New(consensus.Config{
			MinimumAgreementRatio: cfg.Consensus.MinimumAgreementRatio,
		}),
		gate:    gate,
		tracker: tracker,
		router: router.New(router.Config{
			MaxChunkNotionalUSD: cfg.Sizing.MaxChunkNotionalUSD,
		}, venue, tracker, gate),
	}, nil
}

// Gate exposes the risk gate for operator actions (manual breaker reset).
func (e *Engine) Gate() *risk.Gate { return e.gate }

// Positions exposes the local position snapshot.
func (e *Engine) Positions() *positions.Tracker { return e.tracker }
