package sim

import "errors"

// Error kinds reported by the engine. Callers discriminate with errors.Is;
// the CLI maps them onto exit codes.
var (
	// ErrModelIO indicates malformed or unreadable model input.
	ErrModelIO = errors.New("model i/o error")

	// ErrInvalidModel indicates a parsed model that violates a domain
	// invariant (negative rate, non-positive volume, unknown species).
	ErrInvalidModel = errors.New("invalid model")

	// ErrLadderFalloff indicates the direct-method propensity walk exhausted
	// all processes without selecting one. This is a floating-point
	// inconsistency between the incremental total and the propensity vector;
	// the selector recomputes its total on the next call.
	ErrLadderFalloff = errors.New("fell off propensity ladder")

	// ErrExhausted indicates the total propensity is zero: no process can
	// fire and simulated time can advance no further by events.
	ErrExhausted = errors.New("no active processes")
)
