package advisorobs

import (
	"context"

	"swarm-trading-bot/internal/interfaces"
	"swarm-trading-bot/internal/logger"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

// observableAdvisor wraps an Advisor with observability (logging & tracing)
type observableAdvisor struct {
	advisor interfaces.Advisor
}

// Compile-time interface check
var _ interfaces.Advisor = (*observableAdvisor)(nil)

// Wrap wraps an advisor with observability middleware
func Wrap(advisor interfaces.Advisor) interfaces.Advisor {
	return &observableAdvisor{advisor: advisor}
}

func (oa *observableAdvisor) Name() string { return oa.advisor.Name() }

// Signal requests an advisory vote with observability
func (oa *observableAdvisor) Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Signal")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting advisory signal",
		"source", oa.advisor.Name(),
		"token", mctx.Token,
		"price", mctx.Price,
	)

	sig, err := oa.advisor.Signal(ctx, mctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Advisory signal failed", err,
			"source", oa.advisor.Name(),
			"token", mctx.Token,
		)
		return types.Signal{}, err
	}

	logger.InfoSkip(ctx, 1, "Advisory signal received",
		"source", oa.advisor.Name(),
		"token", mctx.Token,
		"action", string(sig.Action),
		"confidence", sig.Confidence,
		"rationale", sig.Rationale,
	)
	return sig, nil
}
