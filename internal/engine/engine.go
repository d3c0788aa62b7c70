// Package engine runs the decision cycle: gather market context, collect
// advisory signals, reduce to consensus, gate through risk, and route the
// approved order.
package engine

import (
	"context"
	"errors"
	"time"

	"swarm-trading-bot/internal/consensus"
	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/positions"
	"swarm-trading-bot/internal/risk"
	"swarm-trading-bot/internal/router"
	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/swarm"
	"swarm-trading-bot/internal/ta"
	"swarm-trading-bot/internal/tradelog"
	"swarm-trading-bot/internal/types"
)

type Engine struct {
	cfg        *store.Config
	venue      interfaces.Venue
	aggregator *swarm.Aggregator
	consensus  *consensus.Engine
	gate       *risk.Gate
	tracker    *positions.Tracker
	router     *router.Router
}

var _ interfaces.Engine = (*Engine)(nil)

// Cycle runs one full decision round for a token. A HOLD outcome, a risk
// denial and a routed order are all normal results; the error reports what
// stopped the cycle short, with any confirmed fills already in the result.
func (e *Engine) Cycle(ctx context.Context, token string) (*types.CycleResult, error) {
	mctx, err := e.marketContext(ctx, token)
	if err != nil {
		return nil, err
	}

	result := &types.CycleResult{
		Token: token,
		Price: mctx.Price,
		Time:  time.Now().Unix(),
	}

	signals, abstains, err := e.aggregator.Collect(ctx, mctx)
	if err != nil {
		result.Reason = "insufficient_signals"
		logger.Warn(ctx, "Advisory round failed", "token", token,
			"responders", len(signals), "abstained", len(abstains), "error", err)
		return result, err
	}

	decision, err := e.consensus.Reduce(token, signals, len(abstains))
	if err != nil {
		result.Reason = "no_consensus"
		return result, err
	}
	result.Decision = decision

	logger.Decision(ctx, token, string(decision.Action), decision.Confidence, decision.AgreementRatio,
		"responders", decision.Responders,
		"dissenters", decision.Dissenters,
		"abstained", decision.Abstained,
		"downgraded", decision.Downgraded)

	reason := "consensus"
	if decision.Downgraded {
		reason = "downgraded_low_agreement"
	}
	e.journalDecision(ctx, decision, mctx.Price, reason)

	if decision.Action == types.ActionHold {
		result.Reason = reason
		return result, nil
	}

	// Refresh balance from the venue so the gate judges real funds.
	if bal, berr := e.venue.Balance(ctx); berr == nil {
		e.gate.SetBalance(bal)
	} else {
		logger.Warn(ctx, "Balance refresh failed, gating on last known balance", "token", token, "error", berr)
	}

	approval, err := e.gate.Evaluate(ctx, token, e.cfg.Sizing.TargetNotionalUSD)
	if err != nil {
		result.Reason = denialReason(err)
		return result, err
	}

	current := e.tracker.Get(e.venue.Name(), token)
	plan, err := e.router.Plan(decision, approval.ApprovedNotional, current)
	if err != nil {
		result.Reason = "unsupported_operation"
		return result, err
	}
	if plan.Empty() {
		result.Reason = "no_position_change"
		return result, nil
	}

	fills, execErr := e.router.Execute(ctx, plan)
	result.Fills = fills
	for _, fill := range fills {
		e.journalFill(ctx, fill, decision)
	}
	if execErr != nil {
		result.Reason = "partial_execution"
		return result, execErr
	}

	result.Reason = "executed"
	return result, nil
}

// marketContext assembles price, candles and indicators for the advisors.
// Missing candles degrade to a context without indicators.
func (e *Engine) marketContext(ctx context.Context, token string) (types.MarketContext, error) {
	price, err := e.venue.MarkPrice(ctx, token)
	if err != nil {
		return types.MarketContext{}, err
	}

	mctx := types.MarketContext{Token: token, Price: price}

	candles, err := e.venue.RecentCandles(ctx, token, e.cfg.Indicators.CandleN)
	if err != nil {
		logger.Warn(ctx, "Candle fetch failed, advisors get price only", "token", token, "error", err)
		return mctx, nil
	}
	mctx.Candles = candles
	mctx.Indicators = ta.Compute(candles, ta.Params{
		SMAWindows: e.cfg.Indicators.SMAWindows,
		RSIPeriod:  e.cfg.Indicators.RSIPeriod,
		BBWindow:   e.cfg.Indicators.BBWindow,
		BBStdDev:   e.cfg.Indicators.BBStdDev,
		ATRPeriod:  e.cfg.Indicators.ATRPeriod,
	})
	return mctx, nil
}

func (e *Engine) journalDecision(ctx context.Context, d types.ConsensusDecision, price float64, reason string) {
	err := tradelog.AppendDecision(tradelog.DecisionEntry{
		Token:          d.Token,
		Action:         string(d.Action),
		Reason:         reason,
		Confidence:     d.Confidence,
		AgreementRatio: d.AgreementRatio,
		Responders:     d.Responders,
		Dissenters:     d.Dissenters,
		Abstained:      d.Abstained,
		Price:          price,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal decision", err, "token", d.Token)
	}
}

func (e *Engine) journalFill(ctx context.Context, fill types.FillResult, d types.ConsensusDecision) {
	err := tradelog.AppendFill(tradelog.FillEntry{
		Venue:       fill.Venue,
		Token:       fill.Token,
		Action:      string(fill.Action),
		OrderID:     fill.OrderID,
		Reason:      "consensus",
		NotionalUSD: fill.FilledNotional,
		AvgPrice:    fill.AvgPrice,
		Confidence:  d.Confidence,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal fill", err, "token", fill.Token, "order_id", fill.OrderID)
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, types.ErrCircuitBreakerTripped):
		return "circuit_breaker_tripped"
	case errors.Is(err, types.ErrBelowMinimumBalance):
		return "below_minimum_balance"
	default:
		return "risk_denied"
	}
}
