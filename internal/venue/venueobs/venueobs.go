package venueobs

import (
	"context"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

// observableVenue wraps a Venue with observability (logging & tracing)
type observableVenue struct {
	venue interfaces.Venue
}

// Compile-time interface check
var _ interfaces.Venue = (*observableVenue)(nil)

// Wrap wraps a venue with observability middleware
func Wrap(venue interfaces.Venue) interfaces.Venue {
	return &observableVenue{venue: venue}
}

func (ov *observableVenue) Name() string        { return ov.venue.Name() }
func (ov *observableVenue) SupportsShort() bool { return ov.venue.SupportsShort() }

// Balance fetches the account balance with observability
func (ov *observableVenue) Balance(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "venue.Balance")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching balance", "venue", ov.venue.Name())

	bal, err := ov.venue.Balance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err, "venue", ov.venue.Name())
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Balance fetched successfully", "venue", ov.venue.Name(), "balance_usd", bal)
	return bal, nil
}

// MarkPrice fetches the mark price with observability
func (ov *observableVenue) MarkPrice(ctx context.Context, token string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "venue.MarkPrice")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching mark price", "venue", ov.venue.Name(), "token", token)

	price, err := ov.venue.MarkPrice(ctx, token)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch mark price", err, "venue", ov.venue.Name(), "token", token)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Mark price fetched successfully", "venue", ov.venue.Name(), "token", token, "price", price)
	return price, nil
}

// RecentCandles fetches candles with observability
func (ov *observableVenue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "venue.RecentCandles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching recent candles", "venue", ov.venue.Name(), "token", token, "count", n)

	candles, err := ov.venue.RecentCandles(ctx, token, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "venue", ov.venue.Name(), "token", token, "count", n)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "venue", ov.venue.Name(), "token", token, "count", len(candles))
	return candles, nil
}

// GetPosition fetches the venue position with observability
func (ov *observableVenue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "venue.GetPosition")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching position", "venue", ov.venue.Name(), "token", token)

	pos, err := ov.venue.GetPosition(ctx, token)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch position", err, "venue", ov.venue.Name(), "token", token)
		return types.Position{}, err
	}

	logger.DebugSkip(ctx, 1, "Position fetched successfully",
		"venue", ov.venue.Name(), "token", token, "side", string(pos.Side), "size", pos.Size)
	return pos, nil
}

// MarketBuy places a market buy with observability
func (ov *observableVenue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.MarketBuy")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing market buy",
		"venue", ov.venue.Name(), "token", token, "notional_usd", notionalUSD)

	fill, err := ov.venue.MarketBuy(ctx, token, notionalUSD)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place market buy", err,
			"venue", ov.venue.Name(), "token", token, "notional_usd", notionalUSD)
		return types.FillResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Market buy filled",
		"venue", ov.venue.Name(), "token", token, "order_id", fill.OrderID, "avg_price", fill.AvgPrice)
	return fill, nil
}

// MarketSell places a market sell with observability
func (ov *observableVenue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.MarketSell")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing market sell",
		"venue", ov.venue.Name(), "token", token, "notional_usd", notionalUSD)

	fill, err := ov.venue.MarketSell(ctx, token, notionalUSD)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place market sell", err,
			"venue", ov.venue.Name(), "token", token, "notional_usd", notionalUSD)
		return types.FillResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Market sell filled",
		"venue", ov.venue.Name(), "token", token, "order_id", fill.OrderID, "avg_price", fill.AvgPrice)
	return fill, nil
}

// ClosePosition flattens a position with observability
func (ov *observableVenue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.ClosePosition")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Closing position", "venue", ov.venue.Name(), "token", token)

	fill, err := ov.venue.ClosePosition(ctx, token)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close position", err, "venue", ov.venue.Name(), "token", token)
		return types.FillResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Position closed",
		"venue", ov.venue.Name(), "token", token, "order_id", fill.OrderID)
	return fill, nil
}
