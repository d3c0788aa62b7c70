package types

import "time"

// Action is the direction an advisory source votes for.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether the action is one of BUY, SELL, HOLD.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideFlat  Side = "FLAT"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Indicators struct {
	SMA map[int]float64
	RSI float64
	BB  struct{ Middle, Upper, Lower float64 }
	ATR float64
}

// MarketContext is the blob handed to every advisory source. The core never
// interprets it beyond Token and Price.
type MarketContext struct {
	Token      string         `json:"token"`
	Price      float64        `json:"price"`
	Candles    []Candle       `json:"candles,omitempty"`
	Indicators Indicators     `json:"indicators"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Signal is one advisory source's vote. Immutable once returned.
// Confidence is on a 0-100 scale; out-of-range values are rejected at
// aggregation, never clamped.
type Signal struct {
	Source     string        `json:"source"`
	Action     Action        `json:"action"`
	Confidence float64       `json:"confidence"`
	Rationale  string        `json:"rationale,omitempty"`
	Latency    time.Duration `json:"latency_ns,omitempty"`
}

// Abstain marks a source that produced no usable vote this round.
type Abstain struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// ConsensusDecision is the reduction of one round of signals.
type ConsensusDecision struct {
	Token          string    `json:"token"`
	Action         Action    `json:"action"`
	AgreementRatio float64   `json:"agreement_ratio"`
	Confidence     float64   `json:"confidence"`
	Responders     int       `json:"responders"`
	Dissenters     int       `json:"dissenters"`
	Abstained      int       `json:"abstained"`
	Downgraded     bool      `json:"downgraded,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Position is the exposure held at one venue for one token.
// Size is in base units, Notional in quote currency (USD).
type Position struct {
	Venue      string  `json:"venue"`
	Token      string  `json:"token"`
	Side       Side    `json:"side"`
	Size       float64 `json:"size"`
	Notional   float64 `json:"notional_usd"`
	EntryPrice float64 `json:"entry_price"`
}

// Flat reports whether the position carries no exposure.
func (p Position) Flat() bool {
	return p.Side == SideFlat || p.Size == 0
}

// FillResult is a confirmed execution against a venue.
type FillResult struct {
	Venue          string  `json:"venue"`
	Token          string  `json:"token"`
	Action         Action  `json:"action"`
	AvgPrice       float64 `json:"avg_price"`
	FilledNotional float64 `json:"filled_notional_usd"`
	FilledSize     float64 `json:"filled_size"`
	OrderID        string  `json:"order_id"`
}

// OrderChunk is one bounded-size slice of a larger order.
type OrderChunk struct {
	Venue       string  `json:"venue"`
	Token       string  `json:"token"`
	Action      Action  `json:"action"`
	NotionalUSD float64 `json:"notional_usd"`
}

// OrderPlan is an ordered sequence of chunks whose notionals sum to the
// approved order notional. Chunks execute sequentially against one venue.
type OrderPlan struct {
	Token  string       `json:"token"`
	Chunks []OrderChunk `json:"chunks"`
}

// Empty reports whether the plan is a no-op.
func (p OrderPlan) Empty() bool { return len(p.Chunks) == 0 }

// TotalNotional is the sum of chunk notionals.
func (p OrderPlan) TotalNotional() float64 {
	var sum float64
	for _, c := range p.Chunks {
		sum += c.NotionalUSD
	}
	return sum
}

// CycleResult is the outcome of one decision cycle for one token.
type CycleResult struct {
	Token    string            `json:"token"`
	Decision ConsensusDecision `json:"decision"`
	Price    float64           `json:"price"`
	Time     int64             `json:"time"`
	Fills    []FillResult      `json:"fills"`
	Reason   string            `json:"reason"`
}
