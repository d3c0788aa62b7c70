package venue

import (
	"context"
	"errors"
	"testing"

	"swarm-trading-bot/internal/types"
)

// heldVenue reports a fixed position and records the sell it receives.
type heldVenue struct {
	pos          types.Position
	soldNotional float64
	sells        int
}

func (h *heldVenue) Name() string                                 { return "held" }
func (h *heldVenue) SupportsShort() bool                          { return true }
func (h *heldVenue) Balance(ctx context.Context) (float64, error) { return 1000, nil }
func (h *heldVenue) MarkPrice(ctx context.Context, token string) (float64, error) {
	return 100, nil
}
func (h *heldVenue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	return nil, nil
}
func (h *heldVenue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	return h.pos, nil
}
func (h *heldVenue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return types.FillResult{FilledNotional: notionalUSD}, nil
}
func (h *heldVenue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	h.sells++
	h.soldNotional = notionalUSD
	return types.FillResult{FilledNotional: notionalUSD}, nil
}
func (h *heldVenue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	return types.FillResult{}, nil
}

func TestLongOnlyHidesShortCapability(t *testing.T) {
	inner := &heldVenue{}
	if LongOnly(inner).SupportsShort() {
		t.Error("restricted venue must not report short support")
	}
}

func TestLongOnlyRefusesShortFromFlat(t *testing.T) {
	inner := &heldVenue{pos: types.Position{Side: types.SideFlat}}
	v := LongOnly(inner)

	_, err := v.MarketSell(context.Background(), "BTC", 50)
	if !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation with no long held, got %v", err)
	}
	if inner.sells != 0 {
		t.Errorf("refused sell must not reach the venue, got %d calls", inner.sells)
	}
}

func TestLongOnlyCapsSellAtHeldNotional(t *testing.T) {
	inner := &heldVenue{pos: types.Position{Side: types.SideLong, Size: 1.5, Notional: 150}}
	v := LongOnly(inner)

	fill, err := v.MarketSell(context.Background(), "BTC", 200)
	if err != nil {
		t.Fatalf("capped sell failed: %v", err)
	}
	if inner.soldNotional != 150 || fill.FilledNotional != 150 {
		t.Errorf("sold %v, want sell capped at held notional 150", inner.soldNotional)
	}
}

func TestLongOnlyPassesReduceThrough(t *testing.T) {
	inner := &heldVenue{pos: types.Position{Side: types.SideLong, Size: 1.5, Notional: 150}}
	v := LongOnly(inner)

	if _, err := v.MarketSell(context.Background(), "BTC", 60); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if inner.soldNotional != 60 {
		t.Errorf("sold %v, want the requested 60 untouched", inner.soldNotional)
	}
}
