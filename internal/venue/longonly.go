package venue

import (
	"context"
	"fmt"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/types"
)

type longOnlyVenue struct {
	interfaces.Venue
}

// LongOnly restricts a short-capable venue to LONG/FLAT. Useful for
// running conservative accounts on perpetuals venues: sells still reduce
// and close longs, but opening a short is refused.
func LongOnly(inner interfaces.Venue) interfaces.Venue {
	return &longOnlyVenue{Venue: inner}
}

var _ interfaces.Venue = (*longOnlyVenue)(nil)

func (l *longOnlyVenue) SupportsShort() bool { return false }

func (l *longOnlyVenue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	pos, err := l.Venue.GetPosition(ctx, token)
	if err != nil {
		return types.FillResult{}, err
	}
	if pos.Side != types.SideLong || pos.Size == 0 {
		return types.FillResult{}, fmt.Errorf("%w: sell %s with no long on restricted account", types.ErrUnsupportedOperation, token)
	}
	if notionalUSD > pos.Notional {
		notionalUSD = pos.Notional
	}
	return l.Venue.MarketSell(ctx, token, notionalUSD)
}
