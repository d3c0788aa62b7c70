package router

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"swarm-trading-bot/internal/positions"
	"swarm-trading-bot/internal/risk"
	"swarm-trading-bot/internal/types"
)

// fakeVenue fills every order at a fixed price, optionally failing from a
// given call number onward.
type fakeVenue struct {
	name       string
	shorts     bool
	price      float64
	calls      int
	failAfter  int // fail on call N (1-based); 0 disables
	failErr    error
	lastCtxErr error
}

func (f *fakeVenue) Name() string        { return f.name }
func (f *fakeVenue) SupportsShort() bool { return f.shorts }

func (f *fakeVenue) Balance(ctx context.Context) (float64, error) { return 1000, nil }
func (f *fakeVenue) MarkPrice(ctx context.Context, token string) (float64, error) {
	return f.price, nil
}
func (f *fakeVenue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	return nil, nil
}
func (f *fakeVenue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	return types.Position{Venue: f.name, Token: token, Side: types.SideFlat}, nil
}

func (f *fakeVenue) fill(ctx context.Context, token string, action types.Action, notional float64) (types.FillResult, error) {
	f.calls++
	f.lastCtxErr = ctx.Err()
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return types.FillResult{}, f.failErr
	}
	return types.FillResult{
		Venue: f.name, Token: token, Action: action,
		AvgPrice:       f.price,
		FilledNotional: notional,
		FilledSize:     notional / f.price,
		OrderID:        "SIM-1",
	}, nil
}

func (f *fakeVenue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return f.fill(ctx, token, types.ActionBuy, notionalUSD)
}
func (f *fakeVenue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return f.fill(ctx, token, types.ActionSell, notionalUSD)
}
func (f *fakeVenue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	return types.FillResult{}, nil
}

func newRouter(venue *fakeVenue, max float64) (*Router, *positions.Tracker, *risk.Gate) {
	tracker := positions.NewTracker()
	gate := risk.NewGate(risk.Config{MaxLossUSD: 1000, MaxPositionPct: 100}, 1000)
	r := New(Config{MaxChunkNotionalUSD: max, InflightTimeout: time.Second}, venue, tracker, gate)
	return r, tracker, gate
}

func buyDecision(token string) types.ConsensusDecision {
	return types.ConsensusDecision{Token: token, Action: types.ActionBuy}
}

func flat(token string) types.Position {
	return types.Position{Venue: "fake", Token: token, Side: types.SideFlat}
}

func TestPlanChunksExactSum(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "fake", shorts: true, price: 100}, 10)
	plan, err := r.Plan(buyDecision("BTC"), 30, flat("BTC"))
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Chunks) != 3 {
		t.Fatalf("expected 3 chunks for 30/10, got %d", len(plan.Chunks))
	}
	for i, c := range plan.Chunks {
		if c.NotionalUSD > 10 {
			t.Errorf("chunk %d exceeds max: %v", i, c.NotionalUSD)
		}
	}
	if math.Abs(plan.TotalNotional()-30) > 1e-9 {
		t.Errorf("chunk sum %v != approved 30", plan.TotalNotional())
	}
}

func TestPlanUnevenRemainder(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "fake", shorts: true, price: 100}, 10)
	plan, err := r.Plan(buyDecision("BTC"), 25, flat("BTC"))
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Chunks) != 3 || plan.Chunks[2].NotionalUSD != 5 {
		t.Errorf("expected chunks [10 10 5], got %+v", plan.Chunks)
	}
}

func TestPlanHoldIsEmpty(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "fake", shorts: true, price: 100}, 10)
	plan, err := r.Plan(types.ConsensusDecision{Token: "BTC", Action: types.ActionHold}, 30, flat("BTC"))
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !plan.Empty() {
		t.Errorf("HOLD must plan nothing, got %+v", plan.Chunks)
	}
}

func TestPlanSameSideIsEmpty(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "fake", shorts: true, price: 100}, 10)
	long := types.Position{Venue: "fake", Token: "BTC", Side: types.SideLong, Size: 1, Notional: 100}
	plan, err := r.Plan(buyDecision("BTC"), 30, long)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !plan.Empty() {
		t.Errorf("BUY into existing long must plan nothing, got %+v", plan.Chunks)
	}
}

func TestPlanShortOnLongOnlyVenue(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "spot", shorts: false, price: 100}, 10)
	sell := types.ConsensusDecision{Token: "BTC", Action: types.ActionSell}
	_, err := r.Plan(sell, 30, flat("BTC"))
	if !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Fatalf("short on long-only venue must fail with ErrUnsupportedOperation, got %v", err)
	}
}

func TestPlanSellCapsAtHeldNotionalOnSpot(t *testing.T) {
	r, _, _ := newRouter(&fakeVenue{name: "spot", shorts: false, price: 100}, 10)
	sell := types.ConsensusDecision{Token: "BTC", Action: types.ActionSell}
	long := types.Position{Venue: "spot", Token: "BTC", Side: types.SideLong, Size: 0.15, Notional: 15}
	plan, err := r.Plan(sell, 30, long)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if math.Abs(plan.TotalNotional()-15) > 1e-9 {
		t.Errorf("spot sell must cap at held notional 15, got %v", plan.TotalNotional())
	}
}

func TestExecuteAppliesFillsToTracker(t *testing.T) {
	v := &fakeVenue{name: "fake", shorts: true, price: 100}
	r, tracker, _ := newRouter(v, 10)
	plan, _ := r.Plan(buyDecision("BTC"), 30, flat("BTC"))

	fills, err := r.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(fills) != 3 {
		t.Fatalf("expected 3 fills, got %d", len(fills))
	}
	p := tracker.Get("fake", "BTC")
	if p.Side != types.SideLong || math.Abs(p.Size-0.3) > 1e-9 {
		t.Errorf("tracker not updated: %+v", p)
	}
}

func TestExecutePartialFailureSurfacesFills(t *testing.T) {
	v := &fakeVenue{name: "fake", shorts: true, price: 100, failAfter: 3, failErr: types.ErrRejectedByVenue}
	r, _, _ := newRouter(v, 10)
	plan, _ := r.Plan(buyDecision("BTC"), 30, flat("BTC"))

	fills, err := r.Execute(context.Background(), plan)
	if err == nil {
		t.Fatal("expected execution error")
	}
	var execErr *types.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *types.ExecutionError, got %T", err)
	}
	if execErr.Chunk != 2 {
		t.Errorf("expected failure at chunk index 2, got %d", execErr.Chunk)
	}
	if len(fills) != 2 || len(execErr.Fills) != 2 {
		t.Errorf("expected 2 confirmed fills surfaced, got %d and %d", len(fills), len(execErr.Fills))
	}
	if !errors.Is(err, types.ErrRejectedByVenue) {
		t.Errorf("cause must unwrap to ErrRejectedByVenue, got %v", err)
	}
}

func TestExecuteHonorsCancelBetweenChunks(t *testing.T) {
	v := &fakeVenue{name: "fake", shorts: true, price: 100}
	r, _, _ := newRouter(v, 10)
	plan, _ := r.Plan(buyDecision("BTC"), 30, flat("BTC"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fills, err := r.Execute(ctx, plan)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(fills) != 0 || v.calls != 0 {
		t.Errorf("no chunk may launch after cancellation: fills=%d calls=%d", len(fills), v.calls)
	}
}

func TestExecuteDetachesInflightChunk(t *testing.T) {
	v := &fakeVenue{name: "fake", shorts: true, price: 100}
	r, _, _ := newRouter(v, 10)
	plan, _ := r.Plan(buyDecision("BTC"), 10, flat("BTC"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := r.Execute(ctx, plan); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	// The venue call context must not inherit the cycle's cancel signal.
	if v.lastCtxErr != nil {
		t.Errorf("in-flight context carried error: %v", v.lastCtxErr)
	}
}

func TestExecuteRecordsRealizedOutcome(t *testing.T) {
	v := &fakeVenue{name: "fake", shorts: true, price: 90}
	r, tracker, gate := newRouter(v, 100)

	// Seed a long at 100 and sell it at 90 for a 10 USD loss.
	tracker.Apply(types.FillResult{
		Venue: "fake", Token: "BTC", Action: types.ActionBuy,
		AvgPrice: 100, FilledSize: 1, FilledNotional: 100,
	})
	sell := types.ConsensusDecision{Token: "BTC", Action: types.ActionSell}
	long := tracker.Get("fake", "BTC")
	plan, err := r.Plan(sell, 90, long)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if _, err := r.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := gate.RealizedLoss(); math.Abs(got-10) > 1e-9 {
		t.Errorf("expected realized loss 10 recorded, got %v", got)
	}
}
