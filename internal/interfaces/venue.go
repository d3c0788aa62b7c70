package interfaces

import (
	"context"

	"swarm-trading-bot/internal/types"
)

// Venue is one trading backend with its own position and order semantics.
//
// Spot venues support LONG/FLAT only and must reject a short request with
// types.ErrUnsupportedOperation rather than coercing it. Perpetual and
// futures venues support LONG/SHORT/FLAT; MarketSell with no long position
// opens or extends a short.
type Venue interface {
	// Name is the unique venue identifier string.
	Name() string

	// SupportsShort declares the venue's side set: false means LONG-only.
	SupportsShort() bool

	// Balance returns the account balance in quote currency (USD).
	Balance(ctx context.Context) (float64, error)

	// MarkPrice returns the current mark/mid price for the token.
	MarkPrice(ctx context.Context, token string) (float64, error)

	// RecentCandles returns up to n recent candles, oldest first.
	RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error)

	// GetPosition returns the venue's view of exposure; FLAT if none.
	GetPosition(ctx context.Context, token string) (types.Position, error)

	// MarketBuy buys notionalUSD worth of the token at market.
	MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error)

	// MarketSell sells notionalUSD worth of the token at market.
	MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error)

	// ClosePosition flattens any open position in the token.
	ClosePosition(ctx context.Context, token string) (types.FillResult, error)
}
