package consensus

import (
	"errors"
	"testing"

	"swarm-trading-bot/internal/types"
)

func sig(source string, action types.Action, conf float64) types.Signal {
	return types.Signal{Source: source, Action: action, Confidence: conf}
}

func TestReduceStrictPlurality(t *testing.T) {
	e := New(Config{})
	d, err := e.Reduce("BTC", []types.Signal{
		sig("a", types.ActionBuy, 80),
		sig("b", types.ActionBuy, 60),
		sig("c", types.ActionSell, 90),
	}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionBuy {
		t.Errorf("expected BUY, got %s", d.Action)
	}
	if d.AgreementRatio != 2.0/3.0 {
		t.Errorf("expected agreement 2/3, got %v", d.AgreementRatio)
	}
	if d.Confidence != 70 {
		t.Errorf("expected confidence 70 (mean of winning voters), got %v", d.Confidence)
	}
	if d.Responders != 3 || d.Dissenters != 1 {
		t.Errorf("responders=%d dissenters=%d, want 3 and 1", d.Responders, d.Dissenters)
	}
}

func TestReduceBuySellTieIsHold(t *testing.T) {
	e := New(Config{})
	d, err := e.Reduce("ETH", []types.Signal{
		sig("a", types.ActionBuy, 90),
		sig("b", types.ActionSell, 90),
	}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionHold {
		t.Errorf("BUY/SELL tie must resolve to HOLD, got %s", d.Action)
	}
	if d.Confidence != 0 {
		t.Errorf("no HOLD voters, confidence must be 0, got %v", d.Confidence)
	}
}

func TestReduceTieWithHoldIsHold(t *testing.T) {
	e := New(Config{})
	d, err := e.Reduce("SOL", []types.Signal{
		sig("a", types.ActionBuy, 70),
		sig("b", types.ActionHold, 50),
	}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionHold {
		t.Errorf("tie including HOLD must resolve to HOLD, got %s", d.Action)
	}
	if d.Confidence != 50 {
		t.Errorf("expected mean HOLD confidence 50, got %v", d.Confidence)
	}
}

func TestReduceAgreementIgnoresAbstains(t *testing.T) {
	e := New(Config{})
	d, err := e.Reduce("BTC", []types.Signal{
		sig("a", types.ActionBuy, 80),
		sig("b", types.ActionBuy, 80),
		sig("c", types.ActionBuy, 80),
		sig("d", types.ActionBuy, 80),
		sig("e", types.ActionSell, 60),
	}, 1)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionBuy {
		t.Errorf("expected BUY, got %s", d.Action)
	}
	if d.AgreementRatio != 0.8 {
		t.Errorf("agreement over responders must be 0.8, got %v", d.AgreementRatio)
	}
	if d.Abstained != 1 {
		t.Errorf("expected 1 abstained, got %d", d.Abstained)
	}
}

func TestReduceDowngradeBelowThreshold(t *testing.T) {
	e := New(Config{MinimumAgreementRatio: 0.75})
	d, err := e.Reduce("BTC", []types.Signal{
		sig("a", types.ActionBuy, 80),
		sig("b", types.ActionBuy, 80),
		sig("c", types.ActionSell, 60),
	}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionHold {
		t.Errorf("2/3 BUY below 0.75 floor must downgrade to HOLD, got %s", d.Action)
	}
	if !d.Downgraded {
		t.Error("expected Downgraded flag set")
	}
}

func TestReduceHoldNeverDowngraded(t *testing.T) {
	e := New(Config{MinimumAgreementRatio: 0.9})
	d, err := e.Reduce("BTC", []types.Signal{
		sig("a", types.ActionHold, 40),
		sig("b", types.ActionBuy, 80),
		sig("c", types.ActionSell, 80),
	}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.Action != types.ActionHold || d.Downgraded {
		t.Errorf("HOLD winner must pass through: action=%s downgraded=%v", d.Action, d.Downgraded)
	}
}

func TestReduceEmptyRound(t *testing.T) {
	e := New(Config{})
	_, err := e.Reduce("BTC", nil, 3)
	if !errors.Is(err, types.ErrInsufficientSignals) {
		t.Errorf("expected ErrInsufficientSignals, got %v", err)
	}
}

func TestReduceRatioBounds(t *testing.T) {
	e := New(Config{})
	d, err := e.Reduce("BTC", []types.Signal{sig("a", types.ActionSell, 55)}, 0)
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if d.AgreementRatio < 0 || d.AgreementRatio > 1 {
		t.Errorf("agreement ratio out of [0,1]: %v", d.AgreementRatio)
	}
	if d.AgreementRatio != 1 {
		t.Errorf("sole responder should give ratio 1, got %v", d.AgreementRatio)
	}
}
