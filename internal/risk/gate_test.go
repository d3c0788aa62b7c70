package risk

import (
	"context"
	"errors"
	"testing"

	"swarm-trading-bot/internal/types"
)

func TestEvaluateBalanceFloorDenial(t *testing.T) {
	g := NewGate(Config{MinimumBalanceUSD: 400, MaxPositionPct: 100}, 500)
	_, err := g.Evaluate(context.Background(), "BTC", 150)
	if !errors.Is(err, types.ErrBelowMinimumBalance) {
		t.Fatalf("500 - 150 < 400 must deny with ErrBelowMinimumBalance, got %v", err)
	}
}

func TestEvaluateBalanceFloorUsesRequestedNotional(t *testing.T) {
	// The floor check runs before the clamp: a request the clamp would have
	// shrunk to a safe size is still denied on its requested size.
	g := NewGate(Config{MinimumBalanceUSD: 400, MaxPositionPct: 10}, 500)
	_, err := g.Evaluate(context.Background(), "BTC", 150)
	if !errors.Is(err, types.ErrBelowMinimumBalance) {
		t.Fatalf("expected ErrBelowMinimumBalance before clamping, got %v", err)
	}
}

func TestEvaluateApprovesWithinLimits(t *testing.T) {
	g := NewGate(Config{MinimumBalanceUSD: 100, MaxPositionPct: 50}, 1000)
	a, err := g.Evaluate(context.Background(), "BTC", 200)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if a.ApprovedNotional != 200 || a.Clamped {
		t.Errorf("expected full approval of 200, got %.2f clamped=%v", a.ApprovedNotional, a.Clamped)
	}
}

func TestEvaluateClampsToPositionPct(t *testing.T) {
	g := NewGate(Config{MinimumBalanceUSD: 0, MaxPositionPct: 10}, 1000)
	a, err := g.Evaluate(context.Background(), "BTC", 500)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if a.ApprovedNotional != 100 {
		t.Errorf("expected clamp to 100 (10%% of 1000), got %.2f", a.ApprovedNotional)
	}
	if !a.Clamped || a.ClampReason != "max_position_pct" {
		t.Errorf("expected max_position_pct clamp, got %+v", a)
	}
}

func TestEvaluatePerTokenCap(t *testing.T) {
	g := NewGate(Config{
		MaxPositionPct: 100,
		PerTokenCapUSD: map[string]float64{"DOGE": 25},
	}, 1000)
	a, err := g.Evaluate(context.Background(), "DOGE", 200)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if a.ApprovedNotional != 25 || a.ClampReason != "per_token_cap" {
		t.Errorf("expected per-token clamp to 25, got %+v", a)
	}
}

func TestRecordOutcomeTripsBreaker(t *testing.T) {
	ctx := context.Background()
	g := NewGate(Config{MaxLossUSD: 100, MaxPositionPct: 100}, 1000)

	g.RecordOutcome(ctx, -60)
	if tripped, _ := g.Tripped(); tripped {
		t.Fatal("breaker must not trip below max loss")
	}

	g.RecordOutcome(ctx, -50)
	if tripped, _ := g.Tripped(); !tripped {
		t.Fatal("breaker must trip once cumulative loss reaches max")
	}

	_, err := g.Evaluate(ctx, "BTC", 10)
	if !errors.Is(err, types.ErrCircuitBreakerTripped) {
		t.Fatalf("tripped gate must deny with ErrCircuitBreakerTripped, got %v", err)
	}
}

func TestBreakerStickyUntilReset(t *testing.T) {
	ctx := context.Background()
	g := NewGate(Config{MaxLossUSD: 50, MaxPositionPct: 100}, 1000)
	g.RecordOutcome(ctx, -50)

	// Later profits do not close an open breaker.
	g.RecordOutcome(ctx, 500)
	if tripped, _ := g.Tripped(); !tripped {
		t.Fatal("breaker must stay open despite later profits")
	}

	g.Reset(ctx)
	if tripped, _ := g.Tripped(); tripped {
		t.Fatal("Reset must close the breaker")
	}
	if _, err := g.Evaluate(ctx, "BTC", 10); err != nil {
		t.Fatalf("expected approval after reset, got %v", err)
	}
}

func TestProfitsReduceAccumulator(t *testing.T) {
	ctx := context.Background()
	g := NewGate(Config{MaxLossUSD: 100, MaxPositionPct: 100}, 1000)

	g.RecordOutcome(ctx, -80)
	g.RecordOutcome(ctx, 80)
	g.RecordOutcome(ctx, -90)
	if tripped, _ := g.Tripped(); tripped {
		t.Fatal("recovered losses must not count toward the max")
	}
	if got := g.RealizedLoss(); got != 90 {
		t.Errorf("expected accumulator 90, got %.2f", got)
	}

	// Accumulator never goes negative.
	g.RecordOutcome(ctx, 500)
	if got := g.RealizedLoss(); got != 0 {
		t.Errorf("expected accumulator floored at 0, got %.2f", got)
	}
}
