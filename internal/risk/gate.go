// Package risk gates every order before it reaches the router.
package risk

import (
	"context"
	"fmt"
	"sync"

	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/types"
)

type Config struct {
	// MaxLossUSD is the cumulative realized loss that trips the circuit
	// breaker. Once tripped the gate denies everything until Reset.
	MaxLossUSD float64

	// MinimumBalanceUSD is the floor the projected post-order balance may
	// not cross. Checked against the requested notional before any clamp.
	MinimumBalanceUSD float64

	// MaxPositionPct caps a single order at this percentage of balance.
	MaxPositionPct float64

	// PerTokenCapUSD optionally caps the order notional per token.
	PerTokenCapUSD map[string]float64
}

// Approval is the gate's verdict on a sizing request.
type Approval struct {
	ApprovedNotional float64
	Clamped          bool
	ClampReason      string
}

// Gate holds the mutable risk state for one account. Safe for concurrent
// use; a single mutex covers balance, loss accumulator and breaker state.
type Gate struct {
	mu sync.Mutex

	cfg Config

	balance      float64
	realizedLoss float64
	tripped      bool
	tripReason   string
}

func NewGate(cfg Config, startingBalance float64) *Gate {
	return &Gate{cfg: cfg, balance: startingBalance}
}

// SetBalance refreshes the account balance from the venue before a cycle.
func (g *Gate) SetBalance(balance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = balance
}

// Tripped reports whether the circuit breaker is open, with the reason.
func (g *Gate) Tripped() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped, g.tripReason
}

// Evaluate runs the ordered checks for a requested order notional. The
// order is fixed: breaker, balance floor, position clamp, per-token cap.
// A denial returns a zero approval and the matching sentinel error.
func (g *Gate) Evaluate(ctx context.Context, token string, requestedNotional float64) (Approval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tripped {
		logger.Risk(ctx, token, "denied_circuit_breaker", "reason", g.tripReason)
		return Approval{}, fmt.Errorf("%w: %s", types.ErrCircuitBreakerTripped, g.tripReason)
	}

	if g.balance-requestedNotional < g.cfg.MinimumBalanceUSD {
		logger.Risk(ctx, token, "denied_balance_floor",
			"balance", g.balance,
			"requested_notional", requestedNotional,
			"minimum_balance_usd", g.cfg.MinimumBalanceUSD)
		return Approval{}, fmt.Errorf("%w: balance %.2f - order %.2f < floor %.2f",
			types.ErrBelowMinimumBalance, g.balance, requestedNotional, g.cfg.MinimumBalanceUSD)
	}

	a := Approval{ApprovedNotional: requestedNotional}

	if g.cfg.MaxPositionPct > 0 {
		if limit := g.balance * g.cfg.MaxPositionPct / 100; a.ApprovedNotional > limit {
			a.ApprovedNotional = limit
			a.Clamped = true
			a.ClampReason = "max_position_pct"
		}
	}

	if limit, ok := g.cfg.PerTokenCapUSD[token]; ok && a.ApprovedNotional > limit {
		a.ApprovedNotional = limit
		a.Clamped = true
		a.ClampReason = "per_token_cap"
	}

	if a.Clamped {
		logger.Risk(ctx, token, "clamped",
			"requested_notional", requestedNotional,
			"approved_notional", a.ApprovedNotional,
			"clamp_reason", a.ClampReason)
	}

	return a, nil
}

// RecordOutcome feeds a realized PnL into the loss accumulator. Profits
// reduce the accumulator but never below zero. Crossing MaxLossUSD trips
// the breaker; the trip is sticky until Reset.
func (g *Gate) RecordOutcome(ctx context.Context, realizedPnL float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.realizedLoss -= realizedPnL
	if g.realizedLoss < 0 {
		g.realizedLoss = 0
	}

	if !g.tripped && g.cfg.MaxLossUSD > 0 && g.realizedLoss >= g.cfg.MaxLossUSD {
		g.tripped = true
		g.tripReason = fmt.Sprintf("realized loss %.2f reached max %.2f", g.realizedLoss, g.cfg.MaxLossUSD)
		logger.Risk(ctx, "", "circuit_breaker_tripped",
			"realized_loss", g.realizedLoss,
			"max_loss_usd", g.cfg.MaxLossUSD)
	}
}

// RealizedLoss returns the current loss accumulator, for journaling.
func (g *Gate) RealizedLoss() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.realizedLoss
}

// Reset is the manual operator intervention that closes the breaker and
// zeroes the loss accumulator. Nothing in the trading loop calls it.
func (g *Gate) Reset(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tripped = false
	g.tripReason = ""
	g.realizedLoss = 0
	logger.Risk(ctx, "", "circuit_breaker_reset")
}
