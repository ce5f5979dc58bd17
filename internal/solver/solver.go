// Package solver provides the shared evaluation layer and reporting types
// used by the bracket-based solvers in this module.
package solver

// Model defines a pure mapping from a domain input to a domain output.
// Implementations must be deterministic and side-effect-free; the solvers
// only borrow a model for the duration of a solve call.
type Model[I, O any] interface {
	Call(input I) (O, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc[I, O any] func(I) (O, error)

// Call invokes the wrapped function.
func (f ModelFunc[I, O]) Call(input I) (O, error) {
	return f(input)
}

// EquationProblem lifts a search coordinate into a domain input and derives a
// scalar residual from a model snapshot. The bisection solver searches for a
// root of the residual.
type EquationProblem[I, O any] interface {
	Input(x float64) (I, error)
	Residual(input I, output O) (float64, error)
}

// OptimizationProblem lifts a search coordinate into a domain input and
// derives a scalar objective from a model snapshot. The golden-section solver
// searches for an extremum of the objective.
type OptimizationProblem[I, O any] interface {
	Input(x float64) (I, error)
	Objective(input I, output O) (float64, error)
}

// EquationFunc adapts a pair of closures to EquationProblem.
type EquationFunc[I, O any] struct {
	InputFn    func(x float64) (I, error)
	ResidualFn func(input I, output O) (float64, error)
}

// Input lifts x through InputFn.
func (p EquationFunc[I, O]) Input(x float64) (I, error) {
	return p.InputFn(x)
}

// Residual derives the residual through ResidualFn.
func (p EquationFunc[I, O]) Residual(input I, output O) (float64, error) {
	return p.ResidualFn(input, output)
}

// OptimizationFunc adapts a pair of closures to OptimizationProblem.
type OptimizationFunc[I, O any] struct {
	InputFn     func(x float64) (I, error)
	ObjectiveFn func(input I, output O) (float64, error)
}

// Input lifts x through InputFn.
func (p OptimizationFunc[I, O]) Input(x float64) (I, error) {
	return p.InputFn(x)
}

// Objective derives the objective through ObjectiveFn.
func (p OptimizationFunc[I, O]) Objective(input I, output O) (float64, error) {
	return p.ObjectiveFn(input, output)
}

// Snapshot pairs the input a model was called with and the output it produced.
type Snapshot[I, O any] struct {
	Input  I
	Output O
}

// Evaluation records one probe of the search space: the coordinate, the model
// snapshot, and the scalar derived from it (a residual for root finding, a
// raw objective for optimization). An Evaluation is immutable once
// constructed; the evaluation helpers never return one holding a non-finite
// Value.
type Evaluation[I, O any] struct {
	X        float64
	Snapshot Snapshot[I, O]
	Value    float64
}

// Status reports how a solve ended.
type Status int

const (
	// Converged means a convergence criterion was satisfied.
	Converged Status = iota
	// MaxIters means the iteration budget ran out before convergence.
	MaxIters
	// StoppedByObserver means an observer requested early termination.
	StoppedByObserver
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIters:
		return "max_iters"
	case StoppedByObserver:
		return "stopped_by_observer"
	default:
		return "unknown"
	}
}

// Action is returned by an observer to redirect a solver's internal
// bookkeeping without breaking its correctness invariants.
type Action int

const (
	// NoAction lets the solver continue untouched. It is the zero value, so
	// an observer that returns nothing in particular returns it implicitly.
	NoAction Action = iota
	// StopEarly terminates the solve immediately, reporting the best point
	// known so far.
	StopEarly
	// AssumeWorse marks the current candidate as never eligible to become
	// best while keeping its position in the bracket. Only the golden-section
	// solver honours it; bisection ignores it.
	AssumeWorse
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case NoAction:
		return "none"
	case StopEarly:
		return "stop_early"
	case AssumeWorse:
		return "assume_worse"
	default:
		return "unknown"
	}
}

// Solution is the terminal record of a solve. It is created once, at the
// moment the iteration loop ends, and never mutated afterwards.
type Solution[I, O any] struct {
	// Status tells whether the solve converged, exhausted its iteration
	// budget, or was stopped by an observer.
	Status Status
	// X is the winning search coordinate.
	X float64
	// Value is the residual (bisection) or raw objective (golden-section)
	// at X.
	Value float64
	// Snapshot holds the model input/output pair of the winning evaluation.
	Snapshot Snapshot[I, O]
	// Iters is the number of loop iterations actually performed. Endpoint
	// and initialization evaluations do not count.
	Iters int
}
