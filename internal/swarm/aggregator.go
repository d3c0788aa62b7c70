// Package swarm fans a market context out to every advisory source and
// gathers the round's signals under a wall-clock ceiling.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	bottrace "swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

type Config struct {
	// SourceTimeout bounds each advisory call.
	SourceTimeout time.Duration

	// RoundCeiling bounds the whole round. Sources still running when it
	// fires are counted as abstains; their results are discarded.
	RoundCeiling time.Duration

	// MinimumResponders is the floor below which the round produces no
	// signal set at all.
	MinimumResponders int
}

type Aggregator struct {
	cfg      Config
	advisors []interfaces.Advisor
}

func NewAggregator(cfg Config, advisors []interfaces.Advisor) *Aggregator {
	return &Aggregator{cfg: cfg, advisors: advisors}
}

type outcome struct {
	source string
	signal types.Signal
	err    error
}

// Collect runs one advisory round. Every registered source gets the same
// market context concurrently; each is bounded by SourceTimeout and the
// round by RoundCeiling. A source that times out, errors, or returns an
// out-of-range signal abstains; abstaining never fails the round on its
// own. Fewer than MinimumResponders valid signals fails the round with
// ErrInsufficientSignals, returning whatever was gathered.
func (a *Aggregator) Collect(ctx context.Context, mctx types.MarketContext) ([]types.Signal, []types.Abstain, error) {
	ctx, span := bottrace.StartSpan(ctx, "swarm.Collect")
	defer span.End()

	roundCtx, cancelRound := context.WithTimeout(ctx, a.cfg.RoundCeiling)
	defer cancelRound()

	results := make(chan outcome, len(a.advisors))
	for _, adv := range a.advisors {
		go func(adv interfaces.Advisor) {
			srcCtx, cancel := context.WithTimeout(roundCtx, a.cfg.SourceTimeout)
			defer cancel()

			start := time.Now()
			sig, err := adv.Signal(srcCtx, mctx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("%w: %s", types.ErrAbstainTimeout, adv.Name())
				}
				results <- outcome{source: adv.Name(), err: err}
				return
			}

			sig.Source = adv.Name()
			sig.Latency = time.Since(start)
			if verr := validate(sig); verr != nil {
				results <- outcome{source: adv.Name(), err: verr}
				return
			}
			results <- outcome{source: adv.Name(), signal: sig}
		}(adv)
	}

	signals := make([]types.Signal, 0, len(a.advisors))
	abstains := make([]types.Abstain, 0)
	reported := make(map[string]bool, len(a.advisors))

gather:
	for range a.advisors {
		select {
		case out := <-results:
			reported[out.source] = true
			if out.err != nil {
				logger.Warn(ctx, "Advisory source abstained",
					"source", out.source, "token", mctx.Token, "error", out.err)
				abstains = append(abstains, types.Abstain{Source: out.source, Err: out.err})
				continue
			}
			signals = append(signals, out.signal)
		case <-roundCtx.Done():
			break gather
		}
	}

	// Anything still outstanding when the ceiling fired abstains.
	for _, adv := range a.advisors {
		if !reported[adv.Name()] {
			abstains = append(abstains, types.Abstain{
				Source: adv.Name(),
				Err:    fmt.Errorf("%w: round ceiling", types.ErrAbstainTimeout),
			})
		}
	}

	if len(signals) < a.cfg.MinimumResponders {
		return signals, abstains, fmt.Errorf("%w: %d responders, need %d",
			types.ErrInsufficientSignals, len(signals), a.cfg.MinimumResponders)
	}
	return signals, abstains, nil
}

func validate(s types.Signal) error {
	if !s.Action.Valid() {
		return fmt.Errorf("%w: action %q from %s", types.ErrInvalidSignal, s.Action, s.Source)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("%w: confidence %.2f from %s", types.ErrInvalidSignal, s.Confidence, s.Source)
	}
	return nil
}
