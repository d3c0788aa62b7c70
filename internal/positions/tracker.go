// Package positions tracks local exposure per (venue, token) pair.
package positions

import (
	"sync"

	"swarm-trading-bot/internal/types"
)

type key struct {
	venue string
	token string
}

// Tracker is the single write path for local position state. The router
// applies fills through it; everything else reads.
type Tracker struct {
	mu        sync.RWMutex
	positions map[key]*types.Position
}

func NewTracker() *Tracker {
	return &Tracker{positions: make(map[key]*types.Position)}
}

// Get returns the tracked position, or a FLAT placeholder if none exists.
func (t *Tracker) Get(venue, token string) types.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.positions[key{venue, token}]; ok {
		return *p
	}
	return types.Position{Venue: venue, Token: token, Side: types.SideFlat}
}

// All returns a snapshot of every open position.
func (t *Tracker) All() []types.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out
}

// Apply folds a confirmed fill into local state and returns the updated
// position plus the realized PnL of the fill (zero unless it reduced or
// flipped existing exposure).
//
// Entry price moves by volume-weighted average on same-direction adds and
// is untouched by reductions. A position reduced to zero size is removed.
func (t *Tracker) Apply(fill types.FillResult) (types.Position, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{fill.Venue, fill.Token}
	p, ok := t.positions[k]
	if !ok {
		p = &types.Position{Venue: fill.Venue, Token: fill.Token, Side: types.SideFlat}
		t.positions[k] = p
	}

	fillSide := types.SideLong
	if fill.Action == types.ActionSell {
		fillSide = types.SideShort
	}

	var realized float64
	switch {
	case p.Flat():
		p.Side = fillSide
		p.Size = fill.FilledSize
		p.EntryPrice = fill.AvgPrice

	case p.Side == fillSide:
		// Same-direction add: VWAP the entry.
		total := p.Size + fill.FilledSize
		if total > 0 {
			p.EntryPrice = (p.EntryPrice*p.Size + fill.AvgPrice*fill.FilledSize) / total
		}
		p.Size = total

	case fill.FilledSize < p.Size:
		// Partial reduction.
		realized = pnl(p.Side, p.EntryPrice, fill.AvgPrice, fill.FilledSize)
		p.Size -= fill.FilledSize

	case fill.FilledSize == p.Size:
		// Full close.
		realized = pnl(p.Side, p.EntryPrice, fill.AvgPrice, fill.FilledSize)
		p.Size = 0
		p.Side = types.SideFlat

	default:
		// Flip: close the old side, open the remainder on the new one.
		realized = pnl(p.Side, p.EntryPrice, fill.AvgPrice, p.Size)
		p.Size = fill.FilledSize - p.Size
		p.Side = fillSide
		p.EntryPrice = fill.AvgPrice
	}

	p.Notional = p.Size * fill.AvgPrice

	if p.Size == 0 {
		delete(t.positions, k)
		return types.Position{Venue: fill.Venue, Token: fill.Token, Side: types.SideFlat}, realized
	}
	return *p, realized
}

func pnl(side types.Side, entry, exit, size float64) float64 {
	if side == types.SideShort {
		return (entry - exit) * size
	}
	return (exit - entry) * size
}
