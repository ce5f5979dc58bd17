package golden

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/KELVIN/internal/solver"
)

// objectiveOf builds a model/problem pair whose objective is f(x), counting
// evaluations through evals when it is non-nil.
func objectiveOf(f func(float64) (float64, error), evals *int) (solver.Model[float64, float64], solver.OptimizationProblem[float64, float64]) {
	model := solver.ModelFunc[float64, float64](func(x float64) (float64, error) {
		if evals != nil {
			*evals++
		}
		return f(x)
	})
	problem := solver.OptimizationFunc[float64, float64]{
		InputFn:     func(x float64) (float64, error) { return x, nil },
		ObjectiveFn: func(_, y float64) (float64, error) { return y, nil },
	}
	return model, problem
}

func plain(f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) { return f(x), nil }
}

func defaultConfig() Config {
	return Config{MaxIters: 200, XAbsTol: 1e-9, XRelTol: 0}
}

func TestMinimizeConverges(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return x*x*x*x - 4*x*x
	}), nil)

	sol, err := Minimize(model, problem, [2]float64{0, 3}, defaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, solver.Converged, sol.Status)
	assert.InDelta(t, math.Sqrt2, sol.X, 1e-6)
	assert.InDelta(t, -4.0, sol.Value, 1e-6)
}

func TestMaximizeConverges(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return 5 - (x-1)*(x-1)
	}), nil)

	sol, err := Maximize(model, problem, [2]float64{-2, 4}, defaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, solver.Converged, sol.Status)
	assert.InDelta(t, 1.0, sol.X, 1e-6)
	// Value is the raw objective, not the internally negated one.
	assert.InDelta(t, 5.0, sol.Value, 1e-6)
}

func TestOneEvaluationPerIteration(t *testing.T) {
	evals := 0
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return (x - 2) * (x - 2)
	}), &evals)

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), nil)
	require.NoError(t, err)

	// Initialization evaluates both interior points; every loop iteration
	// evaluates exactly one fresh point.
	assert.Equal(t, sol.Iters+2, evals)
}

func TestAssumeWorseSteersAwayFromMinimum(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return x
	}), nil)

	observe := func(ev Event) solver.Action {
		if ev.Kind == Evaluated && ev.Point.X < 5 {
			return solver.AssumeWorse
		}
		return solver.NoAction
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)

	// The first interior point never goes through the observer on its own,
	// so it is the only low-x point that can remain best.
	firstInterior := 10 * (1 - 1/math.Phi)
	assert.InDelta(t, firstInterior, sol.X, 1e-12)
}

func TestAssumeWorseRecoversFromFailures(t *testing.T) {
	boom := errors.New("property model out of range")
	model, problem := objectiveOf(func(x float64) (float64, error) {
		if x > 5 {
			return 0, boom
		}
		return (x - 2) * (x - 2), nil
	}, nil)

	observe := func(ev Event) solver.Action {
		if ev.Kind != Evaluated {
			return solver.AssumeWorse
		}
		return solver.NoAction
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)

	assert.Equal(t, solver.Converged, sol.Status)
	assert.InDelta(t, 2.0, sol.X, 1e-6)
}

func TestStopEarlyAtInit(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 { return x * x }), nil)

	var initEvent Event
	observe := func(ev Event) solver.Action {
		initEvent = ev
		return solver.StopEarly
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)

	assert.Equal(t, solver.StoppedByObserver, sol.Status)
	assert.Equal(t, 0, sol.Iters)
	assert.Equal(t, 0, initEvent.Iter)
	assert.Equal(t, Evaluated, initEvent.Kind)
	// The event reports the second-evaluated point; the solution is the
	// first interior point.
	assert.InDelta(t, 10*(1-1/math.Phi), sol.X, 1e-12)
	assert.InDelta(t, 10*(1/math.Phi), initEvent.Point.X, 1e-12)
}

func TestStopEarlyInLoop(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return (x - 2) * (x - 2)
	}), nil)

	observe := func(ev Event) solver.Action {
		if ev.Iter == 2 {
			return solver.StopEarly
		}
		return solver.NoAction
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)

	assert.Equal(t, solver.StoppedByObserver, sol.Status)
	assert.Equal(t, 2, sol.Iters)
}

func TestInitOneFailurePropagatesWithoutObserver(t *testing.T) {
	boom := errors.New("no convergence in flash calculation")
	model, problem := objectiveOf(func(x float64) (float64, error) {
		if x > 5 {
			return 0, boom
		}
		return x, nil
	}, nil)

	_, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), nil)
	require.Error(t, err)
	assert.True(t, solver.IsKind(err, solver.KindModel))
	assert.True(t, errors.Is(err, boom))
}

func TestInitOneFailureStopEarlyUsesGoodPoint(t *testing.T) {
	boom := errors.New("model failed")
	model, problem := objectiveOf(func(x float64) (float64, error) {
		if x > 5 {
			return 0, boom
		}
		return x, nil
	}, nil)

	var failEvent Event
	observe := func(ev Event) solver.Action {
		failEvent = ev
		return solver.StopEarly
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)

	assert.Equal(t, solver.StoppedByObserver, sol.Status)
	assert.Equal(t, 0, sol.Iters)
	assert.InDelta(t, 10*(1-1/math.Phi), sol.X, 1e-12)

	assert.Equal(t, ModelFailed, failEvent.Kind)
	assert.True(t, math.IsNaN(failEvent.Point.Objective))
	assert.False(t, math.IsNaN(failEvent.Other.Objective))
}

func TestInitBothFailuresNotRecoverable(t *testing.T) {
	boom := errors.New("model failed everywhere")
	model, problem := objectiveOf(func(x float64) (float64, error) {
		return 0, boom
	}, nil)

	events := 0
	var bothFailEvent Event
	observe := func(ev Event) solver.Action {
		events++
		bothFailEvent = ev
		return solver.AssumeWorse // must be ignored: there is nothing to recover with
	}

	_, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	assert.Equal(t, 1, events)
	assert.True(t, math.IsNaN(bothFailEvent.Point.Objective))
	// Synthetic comparison point: positioned, but with no objective.
	assert.True(t, math.IsNaN(bothFailEvent.Other.Objective))
	assert.False(t, math.IsNaN(bothFailEvent.Other.X))
}

func TestProblemFailureKind(t *testing.T) {
	model := solver.ModelFunc[float64, float64](func(x float64) (float64, error) { return x, nil })
	problem := solver.OptimizationFunc[float64, float64]{
		InputFn: func(x float64) (float64, error) { return x, nil },
		ObjectiveFn: func(_, y float64) (float64, error) {
			if y > 5 {
				return 0, errors.New("objective undefined")
			}
			return y, nil
		},
	}

	var kinds []EventKind
	observe := func(ev Event) solver.Action {
		if ev.Kind != Evaluated {
			kinds = append(kinds, ev.Kind)
			return solver.AssumeWorse
		}
		return solver.NoAction
	}

	sol, err := Minimize(model, problem, [2]float64{0, 10}, defaultConfig(), observe)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, sol.Status)
	for _, k := range kinds {
		assert.Equal(t, ProblemFailed, k)
	}
	require.NotEmpty(t, kinds)
}

func TestInvalidInputs(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 { return x }), nil)

	tests := []struct {
		name     string
		bracket  [2]float64
		cfg      Config
		wantKind solver.Kind
	}{
		{name: "zero max iters", bracket: [2]float64{0, 1}, cfg: Config{}, wantKind: solver.KindInvalidConfig},
		{name: "negative tolerance", bracket: [2]float64{0, 1}, cfg: Config{MaxIters: 10, XRelTol: -0.5}, wantKind: solver.KindInvalidConfig},
		{name: "nan bracket", bracket: [2]float64{math.NaN(), 1}, cfg: defaultConfig(), wantKind: solver.KindNonFiniteBracket},
		{name: "zero width", bracket: [2]float64{2, 2}, cfg: defaultConfig(), wantKind: solver.KindZeroWidthBracket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Minimize(model, problem, tt.bracket, tt.cfg, nil)
			require.Error(t, err)
			assert.True(t, solver.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestIdempotent(t *testing.T) {
	model, problem := objectiveOf(plain(func(x float64) float64 {
		return math.Exp(x) - 3*x
	}), nil)

	first, err := Minimize(model, problem, [2]float64{0, 2}, defaultConfig(), nil)
	require.NoError(t, err)
	second, err := Minimize(model, problem, [2]float64{0, 2}, defaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGoldenBracketGeometry(t *testing.T) {
	b := newGoldenBracket(0, 1)
	assert.InDelta(t, 1-1/math.Phi, b.innerLeft, 1e-15)
	assert.InDelta(t, 1/math.Phi, b.innerRight, 1e-15)
	assert.Less(t, b.left, b.innerLeft)
	assert.Less(t, b.innerLeft, b.innerRight)
	assert.Less(t, b.innerRight, b.right)

	// Shrinking reuses the surviving interior point exactly.
	right := b.shrinkLeft()
	assert.Equal(t, b.innerLeft, right.left)
	assert.Equal(t, b.innerRight, right.innerLeft)
	assert.Equal(t, b.right, right.right)

	left := b.shrinkRight()
	assert.Equal(t, b.left, left.left)
	assert.Equal(t, b.innerLeft, left.innerRight)
	assert.Equal(t, b.innerRight, left.right)

	// Both shrinks contract the width by the same golden factor.
	assert.InDelta(t, b.width()/math.Phi, right.width(), 1e-15)
	assert.InDelta(t, b.width()/math.Phi, left.width(), 1e-15)
}
