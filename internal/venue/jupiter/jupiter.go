// Package jupiter adapts the Jupiter swap aggregator on Solana. It is a
// spot venue: LONG and FLAT only, no shorts, and a sell can never exceed
// held inventory. Live swaps are signed locally with the configured wallet
// and submitted through Solana RPC.
package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/types"
)

const (
	defaultBaseURL = "https://quote-api.jup.ag/v6"
	defaultRPCURL  = "https://api.mainnet-beta.solana.com"
	usdcMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	usdcDecimals = 6
	// The configured mints all carry 9 decimals; token-specific decimals
	// would need a mint registry.
	tokenDecimals = 9
)

// Common token mints, overridable through Params.Mints.
var defaultMints = map[string]string{
	"SOL":  "So11111111111111111111111111111111111111112",
	"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
}

type Params struct {
	Mode    string // DRY_RUN or LIVE
	BaseURL string
	// RPCURL is the Solana RPC endpoint used to submit signed swaps.
	RPCURL string
	Mints  map[string]string // token symbol -> mint address
	// Signer is the wallet key that signs live swap transactions.
	Signer     solana.PrivateKey
	SimBalance float64
}

type Venue struct {
	params Params
	client *resty.Client
	rpc    *rpc.Client

	mu        sync.Mutex
	balance   float64
	inventory map[string]*types.Position // local holdings book
}

var _ interfaces.Venue = (*Venue)(nil)

func New(params Params) *Venue {
	if params.BaseURL == "" {
		params.BaseURL = defaultBaseURL
	}
	if params.RPCURL == "" {
		params.RPCURL = defaultRPCURL
	}
	if params.SimBalance == 0 {
		params.SimBalance = 1000
	}
	mints := make(map[string]string, len(defaultMints)+len(params.Mints))
	for k, v := range defaultMints {
		mints[k] = v
	}
	for k, v := range params.Mints {
		mints[k] = v
	}
	params.Mints = mints

	v := &Venue{
		params:    params,
		client:    resty.New().SetBaseURL(params.BaseURL),
		balance:   params.SimBalance,
		inventory: make(map[string]*types.Position),
	}
	if params.Mode == "LIVE" {
		v.rpc = rpc.New(params.RPCURL)
	}
	return v
}

func (v *Venue) Name() string        { return "jupiter" }
func (v *Venue) SupportsShort() bool { return false }

func (v *Venue) dryRun() bool { return v.params.Mode == "DRY_RUN" }

func (v *Venue) mint(token string) (string, error) {
	m, ok := v.params.Mints[token]
	if !ok {
		return "", fmt.Errorf("%w: no mint configured for %s", types.ErrRejectedByVenue, token)
	}
	return m, nil
}

func (v *Venue) Balance(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// USDC inventory doubles as the account balance; live wallet balances
	// come from the engine's configured account, not Jupiter itself.
	return v.balance, nil
}

// MarkPrice quotes 1 USDC worth of the token and inverts the out amount.
func (v *Venue) MarkPrice(ctx context.Context, token string) (float64, error) {
	mint, err := v.mint(token)
	if err != nil {
		return 0, err
	}

	var quote struct {
		OutAmount string `json:"outAmount"`
	}
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":  usdcMint,
			"outputMint": mint,
			"amount":     "1000000", // 1 USDC in native units
			"swapMode":   "ExactIn",
		}).
		SetResult(&quote).
		Get("/quote")
	if err != nil {
		if v.dryRun() {
			return simPrice(token), nil
		}
		return 0, fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: quote status %d", types.ErrRejectedByVenue, resp.StatusCode())
	}

	out, err := decimal.NewFromString(quote.OutAmount)
	if err != nil || out.IsZero() {
		return 0, fmt.Errorf("%w: unusable quote for %s", types.ErrInsufficientLiquidity, token)
	}
	tokensPerUSDC := out.Shift(-tokenDecimals)
	price, _ := decimal.NewFromInt(1).DivRound(tokensPerUSDC, 8).Float64()
	return price, nil
}

// RecentCandles is unsupported on the quote API; DRY_RUN synthesizes a
// walk so indicator math still runs.
func (v *Venue) RecentCandles(ctx context.Context, token string, n int) ([]types.Candle, error) {
	if v.dryRun() {
		return simCandles(token, n), nil
	}
	return nil, fmt.Errorf("%w: candles on jupiter", types.ErrUnsupportedOperation)
}

func (v *Venue) GetPosition(ctx context.Context, token string) (types.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.inventory[token]; ok {
		return *p, nil
	}
	return types.Position{Venue: v.Name(), Token: token, Side: types.SideFlat}, nil
}

func (v *Venue) MarketBuy(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	return v.swap(ctx, token, types.ActionBuy, notionalUSD)
}

// MarketSell disposes held inventory. With nothing held it is a short,
// which a spot venue cannot express.
func (v *Venue) MarketSell(ctx context.Context, token string, notionalUSD float64) (types.FillResult, error) {
	v.mu.Lock()
	held, ok := v.inventory[token]
	if !ok || held.Size == 0 {
		v.mu.Unlock()
		return types.FillResult{}, fmt.Errorf("%w: sell %s with no inventory", types.ErrUnsupportedOperation, token)
	}
	heldNotional := held.Notional
	v.mu.Unlock()

	if notionalUSD > heldNotional {
		notionalUSD = heldNotional
	}
	return v.swap(ctx, token, types.ActionSell, notionalUSD)
}

func (v *Venue) ClosePosition(ctx context.Context, token string) (types.FillResult, error) {
	pos, err := v.GetPosition(ctx, token)
	if err != nil {
		return types.FillResult{}, err
	}
	if pos.Flat() {
		return types.FillResult{Venue: v.Name(), Token: token}, nil
	}
	return v.swap(ctx, token, types.ActionSell, pos.Notional)
}

func (v *Venue) swap(ctx context.Context, token string, action types.Action, notionalUSD float64) (types.FillResult, error) {
	if notionalUSD <= 0 {
		return types.FillResult{}, fmt.Errorf("%w: non-positive notional %.2f", types.ErrRejectedByVenue, notionalUSD)
	}
	mint, err := v.mint(token)
	if err != nil {
		return types.FillResult{}, err
	}

	price, err := v.MarkPrice(ctx, token)
	if err != nil {
		return types.FillResult{}, err
	}

	var fill types.FillResult
	if v.dryRun() {
		fill = types.FillResult{
			Venue:          v.Name(),
			Token:          token,
			Action:         action,
			AvgPrice:       price,
			FilledNotional: notionalUSD,
			FilledSize:     notionalUSD / price,
			OrderID:        "SIM-" + uuid.NewString(),
		}
	} else {
		fill, err = v.liveSwap(ctx, mint, token, action, notionalUSD, price)
		if err != nil {
			return types.FillResult{}, err
		}
	}
	v.book(&fill, price)
	return fill, nil
}

// liveSwap quotes the route, asks Jupiter for a ready-to-sign transaction,
// signs it with the configured wallet, and submits it via RPC.
func (v *Venue) liveSwap(ctx context.Context, mint, token string, action types.Action, notionalUSD, price float64) (types.FillResult, error) {
	if v.params.Signer == nil || v.rpc == nil {
		return types.FillResult{}, fmt.Errorf("%w: no solana signer configured for live swaps", types.ErrRejectedByVenue)
	}

	inMint, outMint := usdcMint, mint
	amount := decimal.NewFromFloat(notionalUSD).Shift(usdcDecimals).Round(0)
	if action == types.ActionSell {
		inMint, outMint = mint, usdcMint
		amount = decimal.NewFromFloat(notionalUSD).
			DivRound(decimal.NewFromFloat(price), tokenDecimals).
			Shift(tokenDecimals).Round(0)
	}

	route, outAmount, err := v.quoteRoute(ctx, inMint, outMint, amount.String())
	if err != nil {
		return types.FillResult{}, err
	}

	sig, err := v.signAndSend(ctx, route)
	if err != nil {
		return types.FillResult{}, err
	}

	fill := types.FillResult{Venue: v.Name(), Token: token, Action: action, OrderID: sig}
	if action == types.ActionBuy {
		size, _ := outAmount.Shift(-tokenDecimals).Float64()
		fill.FilledSize = size
		fill.FilledNotional = notionalUSD
		if size > 0 {
			fill.AvgPrice = notionalUSD / size
		}
	} else {
		outUSD, _ := outAmount.Shift(-usdcDecimals).Float64()
		size, _ := amount.Shift(-tokenDecimals).Float64()
		fill.FilledSize = size
		fill.FilledNotional = outUSD
		if size > 0 {
			fill.AvgPrice = outUSD / size
		}
	}
	return fill, nil
}

// quoteRoute fetches a full quote for the route. The raw body is handed
// back to /swap verbatim as the quoteResponse.
func (v *Venue) quoteRoute(ctx context.Context, inMint, outMint, amount string) (json.RawMessage, decimal.Decimal, error) {
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   inMint,
			"outputMint":  outMint,
			"amount":      amount,
			"swapMode":    "ExactIn",
			"slippageBps": "50",
		}).
		Get("/quote")
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	if resp.IsError() {
		return nil, decimal.Zero, fmt.Errorf("%w: quote status %d", types.ErrRejectedByVenue, resp.StatusCode())
	}

	var q struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return nil, decimal.Zero, fmt.Errorf("decode quote: %w", err)
	}
	out, err := decimal.NewFromString(q.OutAmount)
	if err != nil || out.IsZero() {
		return nil, decimal.Zero, fmt.Errorf("%w: unusable route to %s", types.ErrInsufficientLiquidity, outMint)
	}
	return json.RawMessage(resp.Body()), out, nil
}

func (v *Venue) signAndSend(ctx context.Context, route json.RawMessage) (string, error) {
	var swapResp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"userPublicKey":    v.params.Signer.PublicKey().String(),
			"wrapAndUnwrapSol": true,
			"quoteResponse":    route,
		}).
		SetResult(&swapResp).
		Post("/swap")
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: swap status %d", types.ErrRejectedByVenue, resp.StatusCode())
	}

	rawTx, err := base64.StdEncoding.DecodeString(swapResp.SwapTransaction)
	if err != nil {
		return "", fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return "", fmt.Errorf("unmarshal swap transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(v.params.Signer.PublicKey()) {
			return &v.params.Signer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign swap transaction: %w", err)
	}

	sig, err := v.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("%w: send transaction: %v", types.ErrVenueUnavailable, err)
	}
	return sig.String(), nil
}

// book applies a fill to the local inventory and USDC balance. The book is
// the venue's view of holdings in both modes; wallet state is not queried.
func (v *Venue) book(fill *types.FillResult, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.inventory[fill.Token]
	if !ok {
		p = &types.Position{Venue: v.Name(), Token: fill.Token, Side: types.SideFlat}
		v.inventory[fill.Token] = p
	}

	if fill.Action == types.ActionBuy {
		total := p.Size + fill.FilledSize
		if p.Size == 0 {
			p.EntryPrice = fill.AvgPrice
		} else {
			p.EntryPrice = (p.EntryPrice*p.Size + fill.AvgPrice*fill.FilledSize) / total
		}
		p.Side = types.SideLong
		p.Size = total
		v.balance -= fill.FilledNotional
	} else {
		if fill.FilledSize > p.Size {
			fill.FilledSize = p.Size
			fill.FilledNotional = fill.FilledSize * fill.AvgPrice
		}
		p.Size -= fill.FilledSize
		v.balance += fill.FilledNotional
		// Snap float dust so a full disposal actually clears the entry.
		if p.Size <= 1e-9 {
			p.Size = 0
			delete(v.inventory, fill.Token)
			p.Side = types.SideFlat
		}
	}
	p.Notional = p.Size * price
}

func simPrice(token string) float64 {
	var h uint32
	for _, c := range token {
		h = h*31 + uint32(c)
	}
	return 0.5 + float64(h%200)
}

func simCandles(token string, n int) []types.Candle {
	base := simPrice(token)
	candles := make([]types.Candle, n)
	px := base
	for i := 0; i < n; i++ {
		step := px * 0.01
		if i%3 == 0 {
			step = -step
		}
		open := px
		px += step
		high, low := open, px
		if px > open {
			high, low = px, open
		}
		candles[i] = types.Candle{
			Open: open, High: high * 1.001, Low: low * 0.999, Close: px,
			Vol: 10000,
		}
	}
	return candles
}
