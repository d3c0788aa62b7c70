// Package venue wraps adapters with the shared call policy: a bounded
// timeout per call and capped exponential backoff on transient failures.
package venue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/types"
)

type RetryConfig struct {
	Attempts    int           // total attempts, capped at 3
	BaseDelay   time.Duration // first backoff delay, doubles per retry
	MaxDelay    time.Duration // backoff cap
	CallTimeout time.Duration // per-attempt deadline
}

func (c *RetryConfig) defaults() {
	if c.Attempts <= 0 || c.Attempts > 3 {
		c.Attempts = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 250 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 2 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 10 * time.Second
	}
}

type retryVenue struct {
	inner interfaces.Venue
	cfg   RetryConfig
}

// WithRetry wraps a venue so every call gets the timeout and backoff
// policy. Only ErrVenueTimeout and ErrVenueUnavailable are retried;
// rejections and unsupported operations propagate immediately.
func WithRetry(inner interfaces.Venue, cfg RetryConfig) interfaces.Venue {
	cfg.defaults()
	return &retryVenue{inner: inner, cfg: cfg}
}

var _ interfaces.Venue = (*retryVenue)(nil)

func (r *retryVenue) Name() string        { return r.inner.Name() }
func (r *retryVenue) SupportsShort() bool { return r.inner.SupportsShort() }

// call runs fn with the per-attempt timeout and classifies a blown
// deadline as ErrVenueTimeout.
func call[T any](ctx context.Context, r *retryVenue, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := r.cfg.BaseDelay

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		v, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %s %s", types.ErrVenueTimeout, r.inner.Name(), op)
		}
		if !types.RetryableVenueErr(err) || attempt >= r.cfg.Attempts {
			return zero, err
		}

		logger.WarnSkip(ctx, 1, "Venue call retrying",
			"venue", r.inner.Name(), "op", op, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay *= 2
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}

func (r *retryVenue) Balance(ctx context.Context) (float64, error) {
	return call(ctx, r, "balance", func(c context.Context) (float64, error) {
		return r.inner.Balance(c)
	})
}

func (r *retryVenue) MarkPrice(ctx context.Context, token string) (float64, error) {
	return call(ctx, r, "mark_price", func(c context.Context) (float64, error) {
		return r.inner.MarkPrice(c, token)
	})
}

func (r *retryVenue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	return call(ctx, r, "recent_candles", func(c context.Context) ([]types.Candle, error) {
		return r.inner.RecentCandles(c, token, n)
	})
}

func (r *retryVenue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	return call(ctx, r, "get_position", func(c context.Context) (types.Position, error) {
		return r.inner.GetPosition(c, token)
	})
}

// Order calls are NOT retried blindly: a timed-out order may have reached
// the venue, so only an explicit pre-send failure is safe to retry. The
// adapters return ErrVenueUnavailable for connection-level failures that
// never left the client; those retry. A deadline after send propagates as
// ErrVenueTimeout without retry.
func (r *retryVenue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return r.order(ctx, "market_buy", func(c context.Context) (types.FillResult, error) {
		return r.inner.MarketBuy(c, token, notionalUSD)
	})
}

func (r *retryVenue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return r.order(ctx, "market_sell", func(c context.Context) (types.FillResult, error) {
		return r.inner.MarketSell(c, token, notionalUSD)
	})
}

func (r *retryVenue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	return r.order(ctx, "close_position", func(c context.Context) (types.FillResult, error) {
		return r.inner.ClosePosition(c, token)
	})
}

func (r *retryVenue) order(ctx context.Context, op string, fn func(context.Context) (types.FillResult, error)) (types.FillResult, error) {
	delay := r.cfg.BaseDelay

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		v, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return types.FillResult{}, fmt.Errorf("%w: %s %s", types.ErrVenueTimeout, r.inner.Name(), op)
		}
		if !errors.Is(err, types.ErrVenueUnavailable) || attempt >= r.cfg.Attempts {
			return types.FillResult{}, err
		}

		logger.WarnSkip(ctx, 1, "Venue order retrying",
			"venue", r.inner.Name(), "op", op, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.FillResult{}, ctx.Err()
		}
		delay *= 2
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}
