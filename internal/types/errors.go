package types

import (
	"errors"
	"fmt"
)

// Failure taxonomy for a decision cycle. Callers distinguish "no decision"
// (ErrInsufficientSignals), "decision made but not executed" (risk denials,
// ErrUnsupportedOperation) and "partially executed" (ExecutionError with a
// non-empty fill set) via errors.Is / errors.As.
var (
	// ErrAbstainTimeout marks a single source that missed its window.
	// Non-fatal: the source is excluded from the tally.
	ErrAbstainTimeout = errors.New("advisory source timed out")

	// ErrInvalidSignal marks a signal rejected at ingestion (bad action or
	// confidence outside [0,100]). The source abstains for the round.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrInsufficientSignals is a round-level failure: fewer sources
	// responded than the configured floor. No decision is produced.
	ErrInsufficientSignals = errors.New("insufficient signals")

	// Risk denials. No order is attempted.
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")
	ErrBelowMinimumBalance   = errors.New("below minimum balance")

	// ErrUnsupportedOperation is a venue/side mismatch, e.g. a short on a
	// long-only venue. Programming or config error; never downgraded.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// Execution failures. VenueTimeout and VenueUnavailable are retried with
	// bounded backoff before propagating; the rest are terminal.
	ErrVenueTimeout          = errors.New("venue timeout")
	ErrVenueUnavailable      = errors.New("venue unavailable")
	ErrRejectedByVenue       = errors.New("rejected by venue")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// RetryableVenueErr reports whether the error is worth retrying against the
// venue under the backoff policy.
func RetryableVenueErr(err error) bool {
	return errors.Is(err, ErrVenueTimeout) || errors.Is(err, ErrVenueUnavailable)
}

// ExecutionError carries the fills already obtained when a chunk of an order
// plan fails. Partial execution is a first-class outcome; it is never rolled
// back.
type ExecutionError struct {
	Chunk int          // index of the chunk that failed
	Fills []FillResult // fills confirmed before the failure
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("order chunk %d failed after %d fills: %v", e.Chunk, len(e.Fills), e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
