// Package router turns an approved decision into bounded order chunks and
// walks them through the venue one at a time.
package router

import (
	"context"
	"fmt"
	"time"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/positions"
	"swarm-trading-bot/internal/risk"
	"swarm-trading-bot/internal/types"
)

type Config struct {
	// MaxChunkNotionalUSD bounds the size of any single order sent to the
	// venue. The chunk sum always equals the approved notional exactly.
	MaxChunkNotionalUSD float64

	// InflightTimeout bounds a chunk that has already been committed to the
	// wire. Cancellation of the cycle context no longer applies to it.
	InflightTimeout time.Duration
}

type Router struct {
	cfg     Config
	venue   interfaces.Venue
	tracker *positions.Tracker
	gate    *risk.Gate
}

func New(cfg Config, venue interfaces.Venue, tracker *positions.Tracker, gate *risk.Gate) *Router {
	if cfg.InflightTimeout == 0 {
		cfg.InflightTimeout = 30 * time.Second
	}
	return &Router{cfg: cfg, venue: venue, tracker: tracker, gate: gate}
}

// Plan converts a decision into an order plan against the current position.
//
// HOLD plans nothing. A decision matching the current exposure side plans
// nothing. A SELL against a long-only venue is only valid as a reduction of
// an existing long; otherwise it fails with ErrUnsupportedOperation.
func (r *Router) Plan(decision types.ConsensusDecision, approvedNotional float64, current types.Position) (types.OrderPlan, error) {
	plan := types.OrderPlan{Token: decision.Token}

	if decision.Action == types.ActionHold || approvedNotional <= 0 {
		return plan, nil
	}

	desired := types.SideLong
	if decision.Action == types.ActionSell {
		desired = types.SideShort
	}
	if !current.Flat() && current.Side == desired {
		return plan, nil
	}

	if desired == types.SideShort && !r.venue.SupportsShort() && current.Flat() {
		return plan, fmt.Errorf("%w: short %s on long-only venue %s",
			types.ErrUnsupportedOperation, decision.Token, r.venue.Name())
	}

	// On a long-only venue a SELL can only unwind the existing long, so the
	// order is capped at the held notional.
	notional := approvedNotional
	if desired == types.SideShort && !r.venue.SupportsShort() && notional > current.Notional {
		notional = current.Notional
	}

	for notional > 0 {
		n := notional
		if n > r.cfg.MaxChunkNotionalUSD {
			n = r.cfg.MaxChunkNotionalUSD
		}
		plan.Chunks = append(plan.Chunks, types.OrderChunk{
			Venue:       r.venue.Name(),
			Token:       decision.Token,
			Action:      decision.Action,
			NotionalUSD: n,
		})
		notional -= n
	}
	return plan, nil
}

// Execute sends the plan's chunks sequentially. The cycle context is
// honored between chunks only: once a chunk is handed to the venue it runs
// to completion (or its own timeout) on a detached context, because an
// order on the wire cannot be recalled.
//
// On failure the fills already confirmed are surfaced in an ExecutionError;
// nothing is rolled back.
func (r *Router) Execute(ctx context.Context, plan types.OrderPlan) ([]types.FillResult, error) {
	var fills []types.FillResult

	for i, chunk := range plan.Chunks {
		if err := ctx.Err(); err != nil {
			if len(fills) == 0 {
				return nil, err
			}
			return fills, &types.ExecutionError{Chunk: i, Fills: fills, Err: err}
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.InflightTimeout)
		fill, err := r.send(callCtx, chunk)
		cancel()
		if err != nil {
			logger.ErrorWithErr(ctx, "Order chunk failed", err,
				"token", chunk.Token,
				"chunk", i,
				"notional_usd", chunk.NotionalUSD,
				"fills_confirmed", len(fills))
			return fills, &types.ExecutionError{Chunk: i, Fills: fills, Err: err}
		}

		fills = append(fills, fill)
		_, realized := r.tracker.Apply(fill)
		if realized != 0 {
			r.gate.RecordOutcome(ctx, realized)
		}
		logger.Fill(ctx, fill.Venue, fill.Token, string(fill.Action),
			fill.FilledNotional, fill.AvgPrice, fill.OrderID,
			"realized_pnl", realized)
	}
	return fills, nil
}

func (r *Router) send(ctx context.Context, chunk types.OrderChunk) (types.FillResult, error) {
	if chunk.Action == types.ActionBuy {
		return r.venue.MarketBuy(ctx, chunk.Token, chunk.NotionalUSD)
	}
	return r.venue.MarketSell(ctx, chunk.Token, chunk.NotionalUSD)
}
