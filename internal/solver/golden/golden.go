// Package golden implements bound-constrained scalar optimization by
// golden-section search.
//
// The bracket keeps two interior points at the golden-ratio fractions of its
// width; every shrink reuses one of them, so each loop iteration costs
// exactly one new model evaluation. An optional observer sees every
// evaluation (and every evaluation failure) and may stop the solve early or
// mark a candidate as assumed-worse, letting the geometric search continue
// past a failed or undesirable point without ever selecting it as best.
package golden

import (
	"errors"
	"math"

	"github.com/copyleftdev/KELVIN/internal/solver"
)

// invPhi is the reciprocal of the golden ratio; interior points sit at
// (1-invPhi) and invPhi of the bracket width.
var invPhi = 1 / math.Phi

// Config bounds the iteration work and sets the convergence tolerances.
type Config struct {
	// MaxIters caps the number of loop iterations after initialization.
	MaxIters int
	// XAbsTol is the absolute bracket-width tolerance.
	XAbsTol float64
	// XRelTol is the relative bracket-width tolerance, scaled by |midpoint|.
	XRelTol float64
}

func (c Config) validate() error {
	if c.MaxIters < 1 {
		return solver.Errorf(solver.KindInvalidConfig, "max iters must be at least 1, got %d", c.MaxIters)
	}
	if err := solver.ValidateTolerance("x abs tol", c.XAbsTol); err != nil {
		return err
	}
	return solver.ValidateTolerance("x rel tol", c.XRelTol)
}

// Point is a lightweight projection of an evaluation, enough for an observer
// to compare candidates without holding the full snapshot. Objective is the
// raw (untransformed) objective, and NaN on the failure leg of an event or
// for the synthetic comparison point of a fully failed initialization.
type Point struct {
	X         float64
	Objective float64
}

// EventKind tells an observer what a solver step produced.
type EventKind int

const (
	// Evaluated means Point carries a fresh, valid evaluation.
	Evaluated EventKind = iota + 1
	// ModelFailed means the model call at Point.X failed; Err carries the
	// failure and Point.Objective is NaN.
	ModelFailed
	// ProblemFailed means the problem adapter at Point.X failed (including a
	// non-finite objective); Err carries the failure and Point.Objective is
	// NaN.
	ProblemFailed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Evaluated:
		return "evaluated"
	case ModelFailed:
		return "model_failed"
	case ProblemFailed:
		return "problem_failed"
	default:
		return "unknown"
	}
}

// Event describes one solver step. Point is the candidate the returned action
// applies to; Other is the comparison point (its objective is NaN when no
// valid comparison point exists). Iter is 0 for initialization events.
// The event is only valid for the duration of the observer call.
type Event struct {
	Iter  int
	Kind  EventKind
	Point Point
	Other Point
	Err   error
}

// Observer inspects every evaluation. Returning solver.StopEarly ends the
// solve with the best point known so far; solver.AssumeWorse makes Point
// ineligible to become best while keeping its slot in the bracket. For the
// failure kinds, returning solver.NoAction propagates the evaluation error
// to the caller. A nil Observer runs the solver unobserved.
type Observer func(Event) solver.Action

// Minimize searches bracket for the minimum of the problem's objective.
func Minimize[I, O any](
	model solver.Model[I, O],
	problem solver.OptimizationProblem[I, O],
	bracket [2]float64,
	cfg Config,
	observe Observer,
) (solver.Solution[I, O], error) {
	return solve(model, problem, bracket, cfg, observe, 1)
}

// Maximize searches bracket for the maximum of the problem's objective. It
// shares the minimizing core through a sign transform; the reported Value is
// the raw objective.
func Maximize[I, O any](
	model solver.Model[I, O],
	problem solver.OptimizationProblem[I, O],
	bracket [2]float64,
	cfg Config,
	observe Observer,
) (solver.Solution[I, O], error) {
	return solve(model, problem, bracket, cfg, observe, -1)
}

// goldenBracket holds a search interval together with its two golden-ratio
// interior points. It is a value type: shrinking produces a new bracket and
// reuses one interior point, which is what bounds the search to one new
// evaluation per iteration.
type goldenBracket struct {
	left, right           float64
	innerLeft, innerRight float64
}

func newGoldenBracket(left, right float64) goldenBracket {
	w := right - left
	return goldenBracket{
		left:       left,
		right:      right,
		innerLeft:  left + (1-invPhi)*w,
		innerRight: left + invPhi*w,
	}
}

// shrinkLeft discards the left endpoint; the old innerRight becomes the new
// innerLeft and a fresh innerRight must be evaluated.
func (b goldenBracket) shrinkLeft() goldenBracket {
	nb := goldenBracket{left: b.innerLeft, right: b.right, innerLeft: b.innerRight}
	nb.innerRight = nb.left + invPhi*(nb.right-nb.left)
	return nb
}

// shrinkRight is the mirror image: the old innerLeft becomes the new
// innerRight.
func (b goldenBracket) shrinkRight() goldenBracket {
	nb := goldenBracket{left: b.left, right: b.innerRight, innerRight: b.innerLeft}
	nb.innerLeft = nb.left + (1-invPhi)*(nb.right-nb.left)
	return nb
}

func (b goldenBracket) width() float64 {
	return b.right - b.left
}

func (b goldenBracket) mid() float64 {
	return (b.left + b.right) / 2
}

// candidate is an interior point of the bracket. f is the transformed
// objective used for comparisons; an assumed candidate carries f=+Inf and may
// hold no evaluation at all (when its evaluation failed), but still occupies
// its geometric slot. The explicit flag keeps a legitimately infinite
// objective from ever being confused with the sentinel.
type candidate[I, O any] struct {
	x       float64
	f       float64
	assumed bool
	eval    solver.Evaluation[I, O]
	hasEval bool
}

func (c candidate[I, O]) point() Point {
	if !c.hasEval {
		return Point{X: c.x, Objective: math.NaN()}
	}
	return Point{X: c.x, Objective: c.eval.Value}
}

func assumedWorse[I, O any](x float64) candidate[I, O] {
	return candidate[I, O]{x: x, f: math.Inf(1), assumed: true}
}

func (c candidate[I, O]) markAssumed() candidate[I, O] {
	c.f = math.Inf(1)
	c.assumed = true
	return c
}

// evalFailure pairs the event kind describing a failed evaluation with the
// error to propagate if no observer recovers it.
type evalFailure struct {
	kind EventKind
	err  error
}

func evalAt[I, O any](
	model solver.Model[I, O],
	problem solver.OptimizationProblem[I, O],
	x, sign float64,
) (candidate[I, O], *evalFailure) {
	eval, err := solver.EvalObjective(model, problem, x)
	if err != nil {
		kind := ProblemFailed
		wrapped := solver.WrapError(solver.KindProblem, err, "problem evaluation failed")
		var ee *solver.EvalError
		if errors.As(err, &ee) && ee.Stage == solver.StageModel {
			kind = ModelFailed
			wrapped = solver.WrapError(solver.KindModel, err, "model evaluation failed")
		}
		return candidate[I, O]{x: x}, &evalFailure{kind: kind, err: wrapped}
	}
	return candidate[I, O]{x: x, f: sign * eval.Value, eval: eval, hasEval: true}, nil
}

func solve[I, O any](
	model solver.Model[I, O],
	problem solver.OptimizationProblem[I, O],
	bracket [2]float64,
	cfg Config,
	observe Observer,
	sign float64,
) (solver.Solution[I, O], error) {
	var zero solver.Solution[I, O]

	if err := cfg.validate(); err != nil {
		return zero, err
	}

	left, right, err := solver.NormalizeBracket(bracket)
	if err != nil {
		return zero, err
	}

	b := newGoldenBracket(left, right)

	// Initialization: evaluate both interior points, then sort out the
	// 0/1/2-failure cases. The first point never goes through the observer on
	// its own; an event always carries a valid comparison point when one
	// exists.
	lc, lfail := evalAt(model, problem, b.innerLeft, sign)
	rc, rfail := evalAt(model, problem, b.innerRight, sign)

	var best candidate[I, O]

	switch {
	case lfail != nil && rfail != nil:
		// Neither AssumeWorse (needs one valid point) nor StopEarly (needs a
		// snapshot to report) could help, so the event is purely a
		// notification with a synthetic comparison point.
		if observe != nil {
			observe(Event{
				Kind:  lfail.kind,
				Point: lc.point(),
				Other: Point{X: rc.x, Objective: math.NaN()},
				Err:   lfail.err,
			})
		}
		return zero, lfail.err

	case lfail != nil || rfail != nil:
		failed, good := lc, rc
		fail := lfail
		if rfail != nil {
			failed, good = rc, lc
			fail = rfail
		}
		action := solver.NoAction
		if observe != nil {
			action = observe(Event{Kind: fail.kind, Point: failed.point(), Other: good.point(), Err: fail.err})
		}
		switch action {
		case solver.StopEarly:
			return newSolution(solver.StoppedByObserver, good.eval, 0), nil
		case solver.AssumeWorse:
			failed = assumedWorse[I, O](failed.x)
			if lfail != nil {
				lc = failed
			} else {
				rc = failed
			}
			best = good
		default:
			return zero, fail.err
		}

	default:
		// Both succeeded: one event, the second-evaluated point as the
		// candidate and the first as comparison.
		action := solver.NoAction
		if observe != nil {
			action = observe(Event{Kind: Evaluated, Point: rc.point(), Other: lc.point()})
		}
		switch action {
		case solver.StopEarly:
			return newSolution(solver.StoppedByObserver, lc.eval, 0), nil
		case solver.AssumeWorse:
			rc = rc.markAssumed()
		}
		best = lc
		if !rc.assumed && rc.f < best.f {
			best = rc
		}
	}

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		// Shrink toward the worse interior point, reusing the other. Ties
		// discard the right side, so the earlier candidate survives.
		var surviving candidate[I, O]
		var freshX float64
		shrankLeft := lc.f > rc.f
		if shrankLeft {
			b = b.shrinkLeft()
			surviving = rc
			freshX = b.innerRight
		} else {
			b = b.shrinkRight()
			surviving = lc
			freshX = b.innerLeft
		}

		nc, fail := evalAt(model, problem, freshX, sign)
		if fail != nil {
			action := solver.NoAction
			if observe != nil {
				action = observe(Event{Iter: iter, Kind: fail.kind, Point: nc.point(), Other: surviving.point(), Err: fail.err})
			}
			switch action {
			case solver.StopEarly:
				return newSolution(solver.StoppedByObserver, best.eval, iter), nil
			case solver.AssumeWorse:
				nc = assumedWorse[I, O](freshX)
			default:
				return zero, fail.err
			}
		} else {
			action := solver.NoAction
			if observe != nil {
				action = observe(Event{Iter: iter, Kind: Evaluated, Point: nc.point(), Other: surviving.point()})
			}
			switch action {
			case solver.StopEarly:
				return newSolution(solver.StoppedByObserver, best.eval, iter), nil
			case solver.AssumeWorse:
				nc = nc.markAssumed()
			default:
				if nc.f < best.f {
					best = nc
				}
			}
		}

		if shrankLeft {
			lc, rc = surviving, nc
		} else {
			lc, rc = nc, surviving
		}

		if b.width() <= cfg.XAbsTol+cfg.XRelTol*math.Abs(b.mid()) {
			return newSolution(solver.Converged, best.eval, iter), nil
		}
	}

	return newSolution(solver.MaxIters, best.eval, cfg.MaxIters), nil
}

func newSolution[I, O any](status solver.Status, eval solver.Evaluation[I, O], iters int) solver.Solution[I, O] {
	return solver.Solution[I, O]{
		Status:   status,
		X:        eval.X,
		Value:    eval.Value,
		Snapshot: eval.Snapshot,
		Iters:    iters,
	}
}
