// Package hyperliquid adapts the Hyperliquid perpetuals API. Shorts are
// supported. DRY_RUN simulates fills locally against real or synthetic
// prices so the rest of the pipeline runs unchanged.
package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/types"
)

const defaultBaseURL = "https://api.hyperliquid.xyz"

type Params struct {
	Mode    string // DRY_RUN or LIVE
	BaseURL string
	// Wallet is the account address used for clearinghouse queries.
	Wallet string
	// SimBalance seeds the DRY_RUN account.
	SimBalance float64
}

type Venue struct {
	params Params
	client *resty.Client

	mu      sync.Mutex
	balance float64
	sims    map[string]*types.Position // DRY_RUN book
}

var _ interfaces.Venue = (*Venue)(nil)

func New(params Params) *Venue {
	if params.BaseURL == "" {
		params.BaseURL = defaultBaseURL
	}
	if params.SimBalance == 0 {
		params.SimBalance = 1000
	}
	client := resty.New().
		SetBaseURL(params.BaseURL).
		SetHeader("Content-Type", "application/json")
	return &Venue{
		params:  params,
		client:  client,
		balance: params.SimBalance,
		sims:    make(map[string]*types.Position),
	}
}

func (v *Venue) Name() string        { return "hyperliquid" }
func (v *Venue) SupportsShort() bool { return true }

func (v *Venue) dryRun() bool { return v.params.Mode == "DRY_RUN" }

// info posts a query to the /info endpoint and decodes into out.
func (v *Venue) info(ctx context.Context, body map[string]any, out any) error {
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		Post("/info")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: info %s status %d", types.ErrRejectedByVenue, body["type"], resp.StatusCode())
	}
	return nil
}

func (v *Venue) Balance(ctx context.Context) (float64, error) {
	if v.dryRun() {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.balance, nil
	}

	var state struct {
		MarginSummary struct {
			AccountValue string `json:"accountValue"`
		} `json:"marginSummary"`
	}
	if err := v.info(ctx, map[string]any{"type": "clearinghouseState", "user": v.params.Wallet}, &state); err != nil {
		return 0, err
	}
	val, err := decimal.NewFromString(state.MarginSummary.AccountValue)
	if err != nil {
		return 0, fmt.Errorf("parse account value %q: %w", state.MarginSummary.AccountValue, err)
	}
	f, _ := val.Float64()
	return f, nil
}

func (v *Venue) MarkPrice(ctx context.Context, token string) (float64, error) {
	var mids map[string]string
	if err := v.info(ctx, map[string]any{"type": "allMids"}, &mids); err != nil {
		if v.dryRun() {
			// No market data in an offline dry run; fall back to a stable
			// synthetic price per token.
			return simPrice(token), nil
		}
		return 0, err
	}
	raw, ok := mids[token]
	if !ok {
		return 0, fmt.Errorf("%w: no mid for %s", types.ErrRejectedByVenue, token)
	}
	px, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse mid %q: %w", raw, err)
	}
	f, _ := px.Float64()
	return f, nil
}

func (v *Venue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	end := time.Now().UnixMilli()
	start := end - int64(n)*time.Hour.Milliseconds()
	var rows []struct {
		T int64  `json:"t"`
		O string `json:"o"`
		H string `json:"h"`
		L string `json:"l"`
		C string `json:"c"`
		V string `json:"v"`
	}
	err := v.info(ctx, map[string]any{
		"type": "candleSnapshot",
		"req":  map[string]any{"coin": token, "interval": "1h", "startTime": start, "endTime": end},
	}, &rows)
	if err != nil {
		if v.dryRun() {
			return simCandles(token, n), nil
		}
		return nil, err
	}

	candles := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, types.Candle{
			Ts:    r.T / 1000,
			Open:  parseF(r.O),
			High:  parseF(r.H),
			Low:   parseF(r.L),
			Close: parseF(r.C),
			Vol:   parseF(r.V),
		})
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func (v *Venue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	if v.dryRun() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if p, ok := v.sims[token]; ok {
			return *p, nil
		}
		return types.Position{Venue: v.Name(), Token: token, Side: types.SideFlat}, nil
	}

	var state struct {
		AssetPositions []struct {
			Position struct {
				Coin     string `json:"coin"`
				Szi      string `json:"szi"`
				EntryPx  string `json:"entryPx"`
				Notional string `json:"positionValue"`
			} `json:"position"`
		} `json:"assetPositions"`
	}
	if err := v.info(ctx, map[string]any{"type": "clearinghouseState", "user": v.params.Wallet}, &state); err != nil {
		return types.Position{}, err
	}

	for _, ap := range state.AssetPositions {
		if ap.Position.Coin != token {
			continue
		}
		szi, perr := decimal.NewFromString(ap.Position.Szi)
		if perr != nil {
			return types.Position{}, fmt.Errorf("parse position size %q: %w", ap.Position.Szi, perr)
		}
		side := types.SideLong
		if szi.IsNegative() {
			side = types.SideShort
		}
		size, _ := szi.Abs().Float64()
		if size == 0 {
			break
		}
		return types.Position{
			Venue:      v.Name(),
			Token:      token,
			Side:       side,
			Size:       size,
			Notional:   parseF(ap.Position.Notional),
			EntryPrice: parseF(ap.Position.EntryPx),
		}, nil
	}
	return types.Position{Venue: v.Name(), Token: token, Side: types.SideFlat}, nil
}

func (v *Venue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return v.order(ctx, token, types.ActionBuy, notionalUSD)
}

func (v *Venue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return v.order(ctx, token, types.ActionSell, notionalUSD)
}

func (v *Venue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	pos, err := v.GetPosition(ctx, token)
	if err != nil {
		return types.FillResult{}, err
	}
	if pos.Flat() {
		return types.FillResult{Venue: v.Name(), Token: token}, nil
	}
	if pos.Side == types.SideLong {
		return v.order(ctx, token, types.ActionSell, pos.Notional)
	}
	return v.order(ctx, token, types.ActionBuy, pos.Notional)
}

func (v *Venue) order(ctx context.Context, token string, action types.Action, notionalUSD float64) (types.FillResult, error) {
	if notionalUSD <= 0 {
		return types.FillResult{}, fmt.Errorf("%w: non-positive notional %.2f", types.ErrRejectedByVenue, notionalUSD)
	}

	price, err := v.MarkPrice(ctx, token)
	if err != nil {
		return types.FillResult{}, err
	}

	if v.dryRun() {
		return v.simFill(token, action, notionalUSD, price), nil
	}

	// TODO: wire an EIP-712 signer for /exchange order actions; until then
	// live order placement is refused rather than sent unsigned.
	payload, _ := json.Marshal(map[string]any{
		"coin": token, "action": string(action), "notional": notionalUSD, "cloid": uuid.NewString(),
	})
	return types.FillResult{}, fmt.Errorf("%w: unsigned exchange action %s", types.ErrRejectedByVenue, payload)
}

// simFill executes the order against the local book at the mark price.
func (v *Venue) simFill(token string, action types.Action, notionalUSD, price float64) types.FillResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	px := decimal.NewFromFloat(price)
	size, _ := decimal.NewFromFloat(notionalUSD).DivRound(px, 8).Float64()

	fill := types.FillResult{
		Venue:          v.Name(),
		Token:          token,
		Action:         action,
		AvgPrice:       price,
		FilledNotional: notionalUSD,
		FilledSize:     size,
		OrderID:        "SIM-" + uuid.NewString(),
	}

	p, ok := v.sims[token]
	if !ok {
		p = &types.Position{Venue: v.Name(), Token: token, Side: types.SideFlat}
		v.sims[token] = p
	}
	prevNotional := p.Notional
	applySim(p, fill)
	// Exposure consumes the simulated balance as margin; reducing or
	// closing releases it, keeping the minimum-balance floor meaningful
	// across a dry-run session.
	v.balance -= p.Notional - prevNotional
	if p.Size == 0 {
		delete(v.sims, token)
	}
	return fill
}

func applySim(p *types.Position, fill types.FillResult) {
	side := types.SideLong
	if fill.Action == types.ActionSell {
		side = types.SideShort
	}
	switch {
	case p.Flat():
		p.Side, p.Size, p.EntryPrice = side, fill.FilledSize, fill.AvgPrice
	case p.Side == side:
		total := p.Size + fill.FilledSize
		p.EntryPrice = (p.EntryPrice*p.Size + fill.AvgPrice*fill.FilledSize) / total
		p.Size = total
	case fill.FilledSize >= p.Size:
		p.Size = fill.FilledSize - p.Size
		p.Side = side
		p.EntryPrice = fill.AvgPrice
		if p.Size == 0 {
			p.Side = types.SideFlat
		}
	default:
		p.Size -= fill.FilledSize
		// Snap float dust so a full reduce actually flattens.
		if p.Size <= 1e-9 {
			p.Size = 0
			p.Side = types.SideFlat
		}
	}
	p.Notional = p.Size * fill.AvgPrice
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// simPrice derives a deterministic-ish base price from the token name so
// offline runs stay stable across calls.
func simPrice(token string) float64 {
	var h uint32
	for _, c := range token {
		h = h*31 + uint32(c)
	}
	return 10 + float64(h%5000)
}

// simCandles produces a random walk around the synthetic price.
func simCandles(token string, n int) []types.Candle {
	base := simPrice(token)
	now := time.Now().Unix()
	candles := make([]types.Candle, n)
	px := base
	for i := 0; i < n; i++ {
		drift := px * (rand.Float64() - 0.5) * 0.02
		open := px
		close := px + drift
		high := open
		if close > high {
			high = close
		}
		low := open
		if close < low {
			low = close
		}
		candles[i] = types.Candle{
			Ts:    now - int64(n-i)*3600,
			Open:  open,
			High:  high * 1.002,
			Low:   low * 0.998,
			Close: close,
			Vol:   1000 + rand.Float64()*5000,
		}
		px = close
	}
	return candles
}
