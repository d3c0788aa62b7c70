package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
mode: SWARM
poll_seconds: 15
tokens: [BTC, ETH]
venue:
  kind: HYPERLIQUID
  mode: DRY_RUN
swarm:
  advisors: [openai, claude, news]
consensus:
  minimum_responders: 2
  minimum_agreement_ratio: 0.6
risk:
  max_loss_usd: 100
  minimum_balance_usd: 50
  max_position_pct: 25
sizing:
  target_notional_usd: 30
  max_chunk_notional_usd: 10
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Mode != "SWARM" {
		t.Errorf("expected mode SWARM, got %s", cfg.Mode)
	}
	if cfg.Consensus.MinimumResponders != 2 {
		t.Errorf("expected minimum_responders 2, got %d", cfg.Consensus.MinimumResponders)
	}
	if cfg.Risk.MaxLossUSD != 100 {
		t.Errorf("expected max_loss_usd 100, got %.2f", cfg.Risk.MaxLossUSD)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Swarm.SourceTimeoutSeconds != 10 {
		t.Errorf("expected default source_timeout_seconds 10, got %d", cfg.Swarm.SourceTimeoutSeconds)
	}
	if cfg.Swarm.RoundCeilingSeconds != 20 {
		t.Errorf("expected default round_ceiling_seconds 20, got %d", cfg.Swarm.RoundCeilingSeconds)
	}
	if cfg.Indicators.RSIPeriod != 14 {
		t.Errorf("expected default rsi_period 14, got %d", cfg.Indicators.RSIPeriod)
	}
}

func TestLoadConfigSingleSourceForcesFloor(t *testing.T) {
	y := strings.Replace(validYAML, "mode: SWARM", "mode: SINGLE_SOURCE", 1)
	cfg, err := LoadConfig(writeTemp(t, y))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Consensus.MinimumResponders != 1 {
		t.Errorf("SINGLE_SOURCE must force minimum_responders to 1, got %d", cfg.Consensus.MinimumResponders)
	}
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	y := strings.Replace(validYAML, "mode: SWARM", "mode: YOLO", 1)
	if _, err := LoadConfig(writeTemp(t, y)); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestLoadConfigRejectsBadAgreementRatio(t *testing.T) {
	y := strings.Replace(validYAML, "minimum_agreement_ratio: 0.6", "minimum_agreement_ratio: 1.5", 1)
	if _, err := LoadConfig(writeTemp(t, y)); err == nil {
		t.Fatal("expected error for agreement ratio above 1")
	}
}

func TestLoadConfigRejectsRespondersAboveAdvisors(t *testing.T) {
	y := strings.Replace(validYAML, "minimum_responders: 2", "minimum_responders: 5", 1)
	if _, err := LoadConfig(writeTemp(t, y)); err == nil {
		t.Fatal("expected error for minimum_responders above advisor count")
	}
}

func TestLoadConfigRejectsEmptyTokens(t *testing.T) {
	y := strings.Replace(validYAML, "tokens: [BTC, ETH]", "tokens: []", 1)
	if _, err := LoadConfig(writeTemp(t, y)); err == nil {
		t.Fatal("expected error for empty token list")
	}
}
