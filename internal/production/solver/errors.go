package solver

import (
	"context"
	"errors"
)

// Model construction errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownItem    = errors.New("unknown item")
	ErrUnknownRecipe  = errors.New("unknown recipe")
	ErrEmptyModel     = errors.New("no recipes available for the requested outputs")
)

// Solve errors.
var (
	ErrInfeasible    = errors.New("problem is infeasible")
	ErrUnbounded     = errors.New("problem is unbounded")
	ErrTimeout       = errors.New("solve timed out")
	ErrCancelled     = errors.New("solve cancelled")
	ErrEngineFailure = errors.New("engine failure")
)

// StatusOf maps a solve error to the status reported in a Solution.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "optimal"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	case errors.Is(err, ErrUnbounded):
		return "unbounded"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "failed"
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCancelled
}
