package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/tradelog"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	must(logger.Init())
	must(trace.Init())

	cfgPath := "config.yaml"
	if v := os.Getenv("BOT_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := store.LoadConfig(cfgPath)
	must(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = tradelog.CompressOlder(n)
	}

	eng, raw, err := buildEngine(ctx, cfg)
	must(err)

	if cfg.Venue.Mode == "DRY_RUN" {
		logger.Info(ctx, "Running in DRY_RUN mode, fills are simulated")
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"venue", cfg.Venue.Kind,
		"tokens", cfg.Tokens,
		"advisors", cfg.Swarm.Advisors,
		"poll_seconds", cfg.PollSeconds)

	for {
		select {
		case <-tick.C:
			for _, token := range cfg.Tokens {
				if _, err := eng.Cycle(ctx, token); err != nil {
					// The obs wrapper already logged the failure; a tripped
					// breaker is worth surfacing on every cycle.
					if tripped, reason := raw.Gate().Tripped(); tripped {
						logger.Warn(ctx, "Trading halted by circuit breaker",
							"token", token, "reason", reason)
					}
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = trace.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
