package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode        string   `yaml:"mode"` // SWARM or SINGLE_SOURCE
	PollSeconds int      `yaml:"poll_seconds"`
	Tokens      []string `yaml:"tokens"`

	Venue struct {
		Kind     string `yaml:"kind"` // HYPERLIQUID or JUPITER
		Mode     string `yaml:"mode"` // DRY_RUN or LIVE
		BaseURL  string `yaml:"base_url"`
		LongOnly bool   `yaml:"long_only"`
	} `yaml:"venue"`

	Swarm struct {
		SourceTimeoutSeconds int      `yaml:"source_timeout_seconds"`
		RoundCeilingSeconds  int      `yaml:"round_ceiling_seconds"`
		Advisors             []string `yaml:"advisors"`
	} `yaml:"swarm"`

	Consensus struct {
		MinimumResponders     int     `yaml:"minimum_responders"`
		MinimumAgreementRatio float64 `yaml:"minimum_agreement_ratio"`
	} `yaml:"consensus"`

	Risk struct {
		MaxLossUSD        float64            `yaml:"max_loss_usd"`
		MinimumBalanceUSD float64            `yaml:"minimum_balance_usd"`
		MaxPositionPct    float64            `yaml:"max_position_pct"`
		PerTokenCapUSD    map[string]float64 `yaml:"per_token_cap_usd"`
	} `yaml:"risk"`

	Sizing struct {
		TargetNotionalUSD   float64 `yaml:"target_notional_usd"`
		MaxChunkNotionalUSD float64 `yaml:"max_chunk_notional_usd"`
	} `yaml:"sizing"`

	Indicators struct {
		SMAWindows []int   `yaml:"sma_windows"`
		RSIPeriod  int     `yaml:"rsi_period"`
		BBWindow   int     `yaml:"bb_window"`
		BBStdDev   float64 `yaml:"bb_stddev"`
		ATRPeriod  int     `yaml:"atr_period"`
		CandleN    int     `yaml:"candle_n"`
	} `yaml:"indicators"`

	LLM struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
		Schema      string  `yaml:"schema"`
	} `yaml:"llm"`

	News struct {
		CacheTTLMins int `yaml:"cache_ttl_mins"`
		MaxArticles  int `yaml:"max_articles"`
	} `yaml:"news"`
}

func (c *Config) Validate() error {
	if c.Mode != "SWARM" && c.Mode != "SINGLE_SOURCE" {
		return fmt.Errorf("invalid mode '%s': must be 'SWARM' or 'SINGLE_SOURCE'", c.Mode)
	}
	if len(c.Tokens) == 0 {
		return errors.New("tokens cannot be empty")
	}
	if c.Venue.Kind != "HYPERLIQUID" && c.Venue.Kind != "JUPITER" {
		return fmt.Errorf("venue.kind must be 'HYPERLIQUID' or 'JUPITER', got '%s'", c.Venue.Kind)
	}
	if c.Venue.Mode != "DRY_RUN" && c.Venue.Mode != "LIVE" {
		return fmt.Errorf("venue.mode must be 'DRY_RUN' or 'LIVE', got '%s'", c.Venue.Mode)
	}
	if len(c.Swarm.Advisors) == 0 {
		return errors.New("swarm.advisors cannot be empty")
	}
	if c.Consensus.MinimumResponders < 1 {
		return fmt.Errorf("consensus.minimum_responders must be >= 1, got %d", c.Consensus.MinimumResponders)
	}
	if c.Consensus.MinimumResponders > len(c.Swarm.Advisors) {
		return fmt.Errorf("consensus.minimum_responders %d exceeds advisor count %d",
			c.Consensus.MinimumResponders, len(c.Swarm.Advisors))
	}
	if c.Consensus.MinimumAgreementRatio < 0 || c.Consensus.MinimumAgreementRatio > 1 {
		return fmt.Errorf("consensus.minimum_agreement_ratio must be in [0,1], got %.2f", c.Consensus.MinimumAgreementRatio)
	}
	if c.Risk.MaxLossUSD <= 0 {
		return fmt.Errorf("risk.max_loss_usd must be positive, got %.2f", c.Risk.MaxLossUSD)
	}
	if c.Risk.MinimumBalanceUSD < 0 {
		return fmt.Errorf("risk.minimum_balance_usd cannot be negative, got %.2f", c.Risk.MinimumBalanceUSD)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 100 {
		return fmt.Errorf("risk.max_position_pct must be between 0-100, got %.2f", c.Risk.MaxPositionPct)
	}
	if c.Sizing.TargetNotionalUSD <= 0 {
		return fmt.Errorf("sizing.target_notional_usd must be positive, got %.2f", c.Sizing.TargetNotionalUSD)
	}
	if c.Sizing.MaxChunkNotionalUSD <= 0 {
		return fmt.Errorf("sizing.max_chunk_notional_usd must be positive, got %.2f", c.Sizing.MaxChunkNotionalUSD)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 30
	}
	if c.Swarm.SourceTimeoutSeconds == 0 {
		c.Swarm.SourceTimeoutSeconds = 10
	}
	if c.Swarm.RoundCeilingSeconds == 0 {
		c.Swarm.RoundCeilingSeconds = 20
	}
	if c.Consensus.MinimumResponders == 0 {
		c.Consensus.MinimumResponders = 1
	}
	// A single-source run answers with one voter; a higher floor would make
	// every round fail.
	if c.Mode == "SINGLE_SOURCE" {
		c.Consensus.MinimumResponders = 1
	}
	if c.Indicators.CandleN == 0 {
		c.Indicators.CandleN = 50
	}
	if len(c.Indicators.SMAWindows) == 0 {
		c.Indicators.SMAWindows = []int{9, 21}
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.BBWindow == 0 {
		c.Indicators.BBWindow = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2.0
	}
	if c.Indicators.ATRPeriod == 0 {
		c.Indicators.ATRPeriod = 14
	}
	if c.News.CacheTTLMins == 0 {
		c.News.CacheTTLMins = 15
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
