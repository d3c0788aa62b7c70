// Package news votes on headline sentiment scraped from crypto news sites.
package news

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

type Config struct {
	CacheTTL    time.Duration
	MaxArticles int
	Timeout     time.Duration
}

// Advisor derives a BUY/SELL/HOLD vote from recent news sentiment. Scrapes
// are cached per token; the swarm can poll far faster than the press moves.
type Advisor struct {
	cfg     Config
	scraper *Scraper

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	signal  types.Signal
	fetched time.Time
}

func New(cfg Config) *Advisor {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.MaxArticles == 0 {
		cfg.MaxArticles = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Advisor{
		cfg:     cfg,
		scraper: NewScraper(cfg.Timeout),
		cache:   make(map[string]cached),
	}
}

func (a *Advisor) Name() string { return "news" }

func (a *Advisor) Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "news-sentiment")
	defer span.End()

	a.mu.Lock()
	if c, ok := a.cache[mctx.Token]; ok && time.Since(c.fetched) < a.cfg.CacheTTL {
		a.mu.Unlock()
		logger.Debug(ctx, "News sentiment served from cache", "token", mctx.Token)
		return c.signal, nil
	}
	a.mu.Unlock()

	articles, err := a.scraper.Scrape(ctx, mctx.Token, a.cfg.MaxArticles)
	if err != nil && len(articles) == 0 {
		return types.Signal{}, fmt.Errorf("scrape %s: %w", mctx.Token, err)
	}

	sig := toSignal(articles)

	a.mu.Lock()
	a.cache[mctx.Token] = cached{signal: sig, fetched: time.Now()}
	a.mu.Unlock()

	logger.Info(ctx, "News sentiment computed",
		"token", mctx.Token,
		"articles", len(articles),
		"action", string(sig.Action),
		"confidence", sig.Confidence)
	return sig, nil
}

// toSignal maps aggregated polarity to a vote. Thin coverage or weak
// polarity abstains into HOLD with low confidence rather than guessing.
func toSignal(articles []Article) types.Signal {
	score, consistency, n := aggregate(articles)
	if n == 0 {
		return types.Signal{Action: types.ActionHold, Confidence: 0, Rationale: "no articles found"}
	}

	action := types.ActionHold
	switch {
	case score >= 0.25:
		action = types.ActionBuy
	case score <= -0.25:
		action = types.ActionSell
	}

	// Coverage factor: 10+ articles counts as full coverage.
	coverage := float64(n) / 10
	if coverage > 1 {
		coverage = 1
	}

	conf := abs(score) * consistency * coverage * 100
	if conf > 100 {
		conf = 100
	}

	return types.Signal{
		Action:     action,
		Confidence: conf,
		Rationale:  fmt.Sprintf("%d articles, polarity %.2f, consistency %.2f", n, score, consistency),
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
