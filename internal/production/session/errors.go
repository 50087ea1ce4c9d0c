package session

import (
	"errors"
	"fmt"

	"github.com/rsned/production-planner/internal/production/solver"
)

// Kind classifies session failures.
type Kind int

const (
	// KindInvalidRequest means the request cannot be encoded; the caller
	// should fix it.
	KindInvalidRequest Kind = iota + 1
	// KindInfeasible means no plan satisfies the request.
	KindInfeasible
	// KindEngine covers unbounded models, timeouts and solver failures.
	KindEngine
	// KindCancelled means the solve was superseded, cancelled by the
	// caller, or the session was closed.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindInfeasible:
		return "infeasible"
	case KindEngine:
		return "engine error"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrSuperseded is wrapped when a newer solve replaced this one.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrClosed is wrapped when the session has been closed.
	ErrClosed = errors.New("session closed")
)

const (
	infeasibleMessage = "No solution found for the given parameters. Try adjusting the inputs, outputs and available recipes."
	invalidMessage    = "The request is invalid: %v"
	cancelledMessage  = "The solve was cancelled."
	failureMessage    = "The solver failed to produce a result. Please try again."
)

// Error is returned by Session.Solve.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns text suitable for showing to an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInfeasible:
		return infeasibleMessage
	case KindInvalidRequest:
		return fmt.Sprintf(invalidMessage, e.Err)
	case KindCancelled:
		return cancelledMessage
	default:
		return failureMessage
	}
}

// classify wraps a builder or engine error in an *Error.
func classify(err error) *Error {
	switch {
	case errors.Is(err, solver.ErrInvalidRequest),
		errors.Is(err, solver.ErrUnknownItem),
		errors.Is(err, solver.ErrUnknownRecipe),
		errors.Is(err, solver.ErrEmptyModel):
		return &Error{Kind: KindInvalidRequest, Err: err}
	case errors.Is(err, solver.ErrInfeasible):
		return &Error{Kind: KindInfeasible, Err: err}
	case errors.Is(err, solver.ErrCancelled):
		return &Error{Kind: KindCancelled, Err: err}
	default:
		return &Error{Kind: KindEngine, Err: err}
	}
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}
