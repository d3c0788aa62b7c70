// Package consensus reduces one round of advisory signals to a single
// decision by plurality vote.
package consensus

import (
	"time"

	"swarm-trading-bot/internal/types"
)

type Config struct {
	// MinimumAgreementRatio downgrades a winning BUY or SELL to HOLD when
	// the winner's share of responders falls below it. Zero disables the
	// downgrade.
	MinimumAgreementRatio float64
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Reduce tallies signals for one token. It assumes every signal has already
// been validated at ingestion. Abstained is how many registered sources
// produced no signal this round; it never enters the agreement ratio.
//
// Ties: an exact BUY/SELL tie resolves to HOLD, and any tie at the top that
// includes HOLD resolves to HOLD.
func (e *Engine) Reduce(token string, signals []types.Signal, abstained int) (types.ConsensusDecision, error) {
	if len(signals) == 0 {
		return types.ConsensusDecision{}, types.ErrInsufficientSignals
	}

	votes := map[types.Action]int{}
	for _, s := range signals {
		votes[s.Action]++
	}

	winner, winnerVotes := pickWinner(votes)

	responders := len(signals)
	ratio := float64(winnerVotes) / float64(responders)

	// Mean confidence over the winning voters only. A tie resolved to HOLD
	// averages the actual HOLD voters, which may be none.
	var confSum float64
	var confN int
	for _, s := range signals {
		if s.Action == winner {
			confSum += s.Confidence
			confN++
		}
	}
	conf := 0.0
	if confN > 0 {
		conf = confSum / float64(confN)
	}

	d := types.ConsensusDecision{
		Token:          token,
		Action:         winner,
		AgreementRatio: ratio,
		Confidence:     conf,
		Responders:     responders,
		Dissenters:     responders - winnerVotes,
		Abstained:      abstained,
		Timestamp:      time.Now().UTC(),
	}

	if d.Action != types.ActionHold && e.cfg.MinimumAgreementRatio > 0 && ratio < e.cfg.MinimumAgreementRatio {
		d.Action = types.ActionHold
		d.Downgraded = true
	}

	return d, nil
}

func pickWinner(votes map[types.Action]int) (types.Action, int) {
	buy, sell, hold := votes[types.ActionBuy], votes[types.ActionSell], votes[types.ActionHold]

	max := buy
	if sell > max {
		max = sell
	}
	if hold > max {
		max = hold
	}

	switch {
	case hold == max:
		return types.ActionHold, hold
	case buy == max && sell == max:
		// Directional deadlock with no HOLD majority still reports the
		// tied vote count.
		return types.ActionHold, votes[types.ActionHold]
	case buy == max:
		return types.ActionBuy, buy
	default:
		return types.ActionSell, sell
	}
}
