package solver

import (
	"errors"
	"fmt"
	"math"
)

// Kind classifies solver errors into the closed set shared by both solvers.
type Kind int

const (
	// KindInvalidConfig marks a configuration rejected before any evaluation.
	KindInvalidConfig Kind = iota + 1
	// KindNonFiniteBracket marks a NaN or infinite bracket endpoint.
	KindNonFiniteBracket
	// KindZeroWidthBracket marks a bracket whose endpoints coincide.
	KindZeroWidthBracket
	// KindNoBracket marks endpoint residuals with the same sign, so no root
	// is guaranteed inside the bracket. Bisection only.
	KindNoBracket
	// KindNonFiniteResidual marks a NaN or infinite residual, which is fatal
	// for bisection. Bisection only.
	KindNonFiniteResidual
	// KindModel wraps a failure raised by the model itself.
	KindModel
	// KindProblem wraps a failure raised by the problem adapter.
	KindProblem
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid config"
	case KindNonFiniteBracket:
		return "non-finite bracket"
	case KindZeroWidthBracket:
		return "zero-width bracket"
	case KindNoBracket:
		return "no bracket"
	case KindNonFiniteResidual:
		return "non-finite residual"
	case KindModel:
		return "model failure"
	case KindProblem:
		return "problem failure"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by the solvers. Configuration and bracket
// errors are always fatal; model and problem failures are recoverable only at
// the observer decision points each solver documents.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Message describes what went wrong.
	Message string
	// Err is the underlying model or problem error, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates a new solver error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a new solver error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying model or problem error. If err is nil,
// WrapError returns nil.
func WrapError(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is (or wraps) a solver Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// NormalizeBracket validates the endpoints of a search bracket and returns
// them ordered so that left < right.
func NormalizeBracket(bracket [2]float64) (left, right float64, err error) {
	for _, v := range bracket {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, Errorf(KindNonFiniteBracket, "bracket endpoint %v", v)
		}
	}
	left, right = bracket[0], bracket[1]
	if left == right {
		return 0, 0, Errorf(KindZeroWidthBracket, "bracket endpoints coincide at %g", left)
	}
	if left > right {
		left, right = right, left
	}
	return left, right, nil
}

// ValidateTolerance checks that a named tolerance is finite and non-negative.
func ValidateTolerance(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Errorf(KindInvalidConfig, "%s must be finite and non-negative, got %v", name, v)
	}
	return nil
}
