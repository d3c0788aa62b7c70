package main

import (
	"context"
	"fmt"
	"os"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"swarm-trading-bot/internal/advisor"
	"swarm-trading-bot/internal/engine"
	"swarm-trading-bot/internal/engine/engineobs"
	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/venue"
	"swarm-trading-bot/internal/venue/hyperliquid"
	"swarm-trading-bot/internal/venue/jupiter"
	"swarm-trading-bot/internal/venue/venueobs"
)

// buildVenue constructs the configured venue adapter wrapped with the
// retry policy and observability middleware.
func buildVenue(cfg *store.Config) (interfaces.Venue, error) {
	var v interfaces.Venue
	switch cfg.Venue.Kind {
	case "HYPERLIQUID":
		v = hyperliquid.New(hyperliquid.Params{
			Mode:    cfg.Venue.Mode,
			BaseURL: cfg.Venue.BaseURL,
			Wallet:  os.Getenv("HYPERLIQUID_WALLET"),
		})
	case "JUPITER":
		params := jupiter.Params{
			Mode:    cfg.Venue.Mode,
			BaseURL: cfg.Venue.BaseURL,
			RPCURL:  os.Getenv("SOLANA_RPC_URL"),
		}
		if cfg.Venue.Mode == "LIVE" {
			key, err := solana.PrivateKeyFromBase58(os.Getenv("SOLANA_PRIVATE_KEY_BASE58"))
			if err != nil {
				return nil, fmt.Errorf("load solana signer: %w", err)
			}
			params.Signer = key
		}
		v = jupiter.New(params)
	default:
		return nil, fmt.Errorf("unknown venue kind %q", cfg.Venue.Kind)
	}

	if cfg.Venue.LongOnly {
		v = venue.LongOnly(v)
	}
	v = venue.WithRetry(v, venue.RetryConfig{
		Attempts:    3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		CallTimeout: 10 * time.Second,
	})
	return venueobs.Wrap(v), nil
}

// buildEngine assembles the full decision pipeline from config.
func buildEngine(ctx context.Context, cfg *store.Config) (interfaces.Engine, *engine.Engine, error) {
	v, err := buildVenue(cfg)
	if err != nil {
		return nil, nil, err
	}

	advisors, err := advisor.Build(cfg)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(ctx, cfg, v, advisors)
	if err != nil {
		return nil, nil, err
	}
	return engineobs.Wrap(eng), eng, nil
}
