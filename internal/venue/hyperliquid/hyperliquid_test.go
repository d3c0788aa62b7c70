package hyperliquid

import (
	"context"
	"math"
	"testing"

	"swarm-trading-bot/internal/types"
)

// newSim returns a DRY_RUN venue whose base URL is unroutable, forcing the
// synthetic price fallback so tests stay offline and deterministic.
func newSim() *Venue {
	return New(Params{Mode: "DRY_RUN", BaseURL: "http://127.0.0.1:1", SimBalance: 1000})
}

func within(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func TestSimFillDebitsAndCreditsBalance(t *testing.T) {
	v := newSim()
	ctx := context.Background()

	if _, err := v.MarketBuy(ctx, "BTC", 100); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	bal, _ := v.Balance(ctx)
	if !within(bal, 900) {
		t.Errorf("balance = %v, want 900 after 100 USD buy", bal)
	}

	if _, err := v.MarketSell(ctx, "BTC", 40); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	bal, _ = v.Balance(ctx)
	if !within(bal, 940) {
		t.Errorf("balance = %v, want 940 after reducing 40", bal)
	}

	if _, err := v.ClosePosition(ctx, "BTC"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	bal, _ = v.Balance(ctx)
	if !within(bal, 1000) {
		t.Errorf("balance = %v, want full 1000 released after close", bal)
	}
	pos, _ := v.GetPosition(ctx, "BTC")
	if !pos.Flat() {
		t.Errorf("position = %+v, want flat after close", pos)
	}
}

func TestSimShortConsumesBalance(t *testing.T) {
	v := newSim()
	ctx := context.Background()

	if _, err := v.MarketSell(ctx, "ETH", 50); err != nil {
		t.Fatalf("short failed: %v", err)
	}
	pos, _ := v.GetPosition(ctx, "ETH")
	if pos.Side != types.SideShort {
		t.Fatalf("position side = %v, want SHORT", pos.Side)
	}
	bal, _ := v.Balance(ctx)
	if !within(bal, 950) {
		t.Errorf("balance = %v, want 950 with 50 USD short exposure", bal)
	}
}
