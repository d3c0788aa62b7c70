// Package advisor resolves configured advisor names into concrete sources.
package advisor

import (
	"fmt"
	"time"

	"swarm-trading-bot/internal/advisor/advisorobs"
	"swarm-trading-bot/internal/advisor/claude"
	"swarm-trading-bot/internal/advisor/news"
	"swarm-trading-bot/internal/advisor/noop"
	"swarm-trading-bot/internal/advisor/openai"
	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/store"
)

// Build resolves cfg.Swarm.Advisors into wrapped advisor instances, in the
// configured order. SINGLE_SOURCE mode keeps only the first entry.
func Build(cfg *store.Config) ([]interfaces.Advisor, error) {
	names := cfg.Swarm.Advisors
	if cfg.Mode == "SINGLE_SOURCE" {
		names = names[:1]
	}

	advisors := make([]interfaces.Advisor, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate advisor %q", name)
		}
		seen[name] = true

		var a interfaces.Advisor
		switch name {
		case "openai":
			a = openai.New(cfg)
		case "claude":
			a = claude.New(cfg)
		case "news":
			a = news.New(news.Config{
				CacheTTL:    time.Duration(cfg.News.CacheTTLMins) * time.Minute,
				MaxArticles: cfg.News.MaxArticles,
			})
		case "noop":
			a = noop.New()
		default:
			return nil, fmt.Errorf("unknown advisor %q", name)
		}
		advisors = append(advisors, advisorobs.Wrap(a))
	}
	return advisors, nil
}
