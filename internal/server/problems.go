package server

import (
	"github.com/copyleftdev/KELVIN/internal/errors"
	"github.com/copyleftdev/KELVIN/internal/solver"
	"github.com/copyleftdev/KELVIN/internal/solver/bisection"
	"github.com/copyleftdev/KELVIN/internal/solver/golden"
	"github.com/copyleftdev/KELVIN/internal/thermo"
)

// paramReader reads required request parameters, remembering the first
// missing one.
type paramReader struct {
	params map[string]float64
	err    error
}

func (r *paramReader) get(name string) float64 {
	if r.err != nil {
		return 0
	}
	v, ok := r.params[name]
	if !ok {
		r.err = errors.Errorf("missing parameter %q", name).WithComponent("server")
		return 0
	}
	return v
}

// rootProblemFunc runs one registered root-finding problem.
type rootProblemFunc func(req *SolveRequest, cfg bisection.Config) (*SolveResult, error)

// optProblemFunc runs one registered optimization problem; each problem fixes
// its own search direction.
type optProblemFunc func(req *SolveRequest, cfg golden.Config) (*SolveResult, error)

// RootProblems lists the names accepted by the root solve endpoint.
func (s *Server) RootProblems() []string {
	return []string{"tank-hold-time", "boiling-pressure", "gas-density-pressure"}
}

// OptimizationProblems lists the names accepted by the optimize endpoint.
func (s *Server) OptimizationProblems() []string {
	return []string{"hx-area"}
}

func (s *Server) rootProblem(name string) (rootProblemFunc, bool) {
	switch name {
	case "tank-hold-time":
		return s.solveTankHoldTime, true
	case "boiling-pressure":
		return s.solveBoilingPressure, true
	case "gas-density-pressure":
		return s.solveGasDensityPressure, true
	default:
		return nil, false
	}
}

func (s *Server) optProblem(name string) (optProblemFunc, bool) {
	switch name {
	case "hx-area":
		return s.solveHXArea, true
	default:
		return nil, false
	}
}

// solveTankHoldTime finds how long a cooling tank needs to reach a target
// temperature.
func (s *Server) solveTankHoldTime(req *SolveRequest, cfg bisection.Config) (*SolveResult, error) {
	p := &paramReader{params: req.Params}
	tank := thermo.CoolingTank{
		Mass:        p.get("mass"),
		Cp:          p.get("cp"),
		UA:          p.get("ua"),
		InitialTemp: p.get("initial_temp"),
		AmbientTemp: p.get("ambient_temp"),
	}
	target := p.get("target_temp")
	if p.err != nil {
		return nil, p.err
	}
	return runRoot(req, tank, thermo.TankHoldTime{Target: target}, cfg)
}

// solveBoilingPressure finds the pressure at which water boils at a target
// temperature, from the built-in saturation table.
func (s *Server) solveBoilingPressure(req *SolveRequest, cfg bisection.Config) (*SolveResult, error) {
	p := &paramReader{params: req.Params}
	target := p.get("target_temp")
	if p.err != nil {
		return nil, p.err
	}
	model := solver.ModelFunc[float64, float64](s.saturation.Call)
	return runRoot(req, model, thermo.BoilingPressure{Target: target}, cfg)
}

// solveGasDensityPressure finds the air pressure that produces a target
// density at a fixed temperature.
func (s *Server) solveGasDensityPressure(req *SolveRequest, cfg bisection.Config) (*SolveResult, error) {
	p := &paramReader{params: req.Params}
	problem := thermo.GasDensityMatch{
		Temperature: p.get("temperature"),
		Target:      p.get("target_density"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return runRoot(req, thermo.Air(), problem, cfg)
}

// solveHXArea maximizes the net benefit of a counterflow heat exchanger over
// a transfer-area bracket.
func (s *Server) solveHXArea(req *SolveRequest, cfg golden.Config) (*SolveResult, error) {
	p := &paramReader{params: req.Params}
	hx := thermo.CounterflowHX{
		U:       p.get("u"),
		CHot:    p.get("c_hot"),
		CCold:   p.get("c_cold"),
		THotIn:  p.get("t_hot_in"),
		TColdIn: p.get("t_cold_in"),
	}
	problem := thermo.HXNetBenefit{
		DutyValue: p.get("duty_value"),
		AreaCost:  p.get("area_cost"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return runMaximize(req, hx, problem, cfg)
}

func runRoot[I, O any](
	req *SolveRequest,
	model solver.Model[I, O],
	problem solver.EquationProblem[I, O],
	cfg bisection.Config,
) (*SolveResult, error) {
	var trace []TraceStep
	var observe bisection.Observer[I, O]
	if req.Trace {
		observe = func(ev bisection.Event[I, O]) solver.Action {
			trace = append(trace, TraceStep{Iter: ev.Iter, X: ev.Eval.X, Value: ev.Eval.Value})
			return solver.NoAction
		}
	}

	sol, err := bisection.Solve(model, problem, req.Bracket, cfg, observe)
	if err != nil {
		return nil, err
	}
	return &SolveResult{
		Problem: req.Problem,
		Status:  sol.Status.String(),
		X:       sol.X,
		Value:   sol.Value,
		Iters:   sol.Iters,
		Trace:   trace,
	}, nil
}

func runMaximize[I, O any](
	req *SolveRequest,
	model solver.Model[I, O],
	problem solver.OptimizationProblem[I, O],
	cfg golden.Config,
) (*SolveResult, error) {
	var trace []TraceStep
	var observe golden.Observer
	if req.Trace {
		observe = func(ev golden.Event) solver.Action {
			step := TraceStep{Iter: ev.Iter, X: ev.Point.X, Value: ev.Point.Objective}
			if ev.Kind != golden.Evaluated {
				step.Event = ev.Kind.String()
			}
			trace = append(trace, step)
			return solver.NoAction
		}
	}

	sol, err := golden.Maximize(model, problem, req.Bracket, cfg, observe)
	if err != nil {
		return nil, err
	}
	return &SolveResult{
		Problem: req.Problem,
		Status:  sol.Status.String(),
		X:       sol.X,
		Value:   sol.Value,
		Iters:   sol.Iters,
		Trace:   trace,
	}, nil
}
