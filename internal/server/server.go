// Package server implements the HTTP solve service over the bracket-based
// solvers and the built-in engineering models.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/KELVIN/internal/config"
	"github.com/copyleftdev/KELVIN/internal/errors"
	"github.com/copyleftdev/KELVIN/internal/solver"
	"github.com/copyleftdev/KELVIN/internal/solver/bisection"
	"github.com/copyleftdev/KELVIN/internal/solver/golden"
	"github.com/copyleftdev/KELVIN/internal/thermo"
)

// SolveRequest is the body of both solve endpoints. Params are the named
// constants of the chosen problem; Bracket is the search interval. Config
// falls back to the service defaults when omitted. Trace requests a
// per-iteration record in the response, collected through a solver observer.
type SolveRequest struct {
	Problem string             `json:"problem"`
	Params  map[string]float64 `json:"params,omitempty"`
	Bracket [2]float64         `json:"bracket"`
	Config  *SolveConfig       `json:"config,omitempty"`
	Trace   bool               `json:"trace,omitempty"`
}

// SolveConfig carries the per-request solver tolerances. ResidualTol only
// applies to root solves.
type SolveConfig struct {
	MaxIters    int     `json:"max_iters,omitempty"`
	XAbsTol     float64 `json:"x_abs_tol,omitempty"`
	XRelTol     float64 `json:"x_rel_tol,omitempty"`
	ResidualTol float64 `json:"residual_tol,omitempty"`
}

// TraceStep is one observed solver iteration. Event names the failure kind
// for golden-section failure events and is empty otherwise.
type TraceStep struct {
	Iter  int     `json:"iter"`
	X     float64 `json:"x"`
	Value float64 `json:"value"`
	Event string  `json:"event,omitempty"`
}

// SolveResult is the response of both solve endpoints.
type SolveResult struct {
	Problem string      `json:"problem"`
	Status  string      `json:"status"`
	X       float64     `json:"x"`
	Value   float64     `json:"value"`
	Iters   int         `json:"iters"`
	Trace   []TraceStep `json:"trace,omitempty"`
}

// Server holds the service dependencies. Solves are synchronous; a bracketed
// scalar solve over the built-in models completes in microseconds.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	saturation *thermo.SaturationTable
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		saturation: thermo.WaterSaturation(),
	}
}

// RegisterRoutes mounts the API on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve/root", s.handleSolveRoot)
		r.Post("/solve/optimize", s.handleSolveOptimize)
		r.Get("/problems", s.handleProblems)
	})
}

func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"root":     s.RootProblems(),
		"optimize": s.OptimizationProblems(),
	})
}

func (s *Server) handleSolveRoot(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSolveRequest(w, r)
	if !ok {
		return
	}

	run, ok := s.rootProblem(req.Problem)
	if !ok {
		s.respondError(w, http.StatusNotFound, errors.Errorf("unknown root problem %q", req.Problem))
		return
	}

	cfg := s.bisectionConfig(req.Config)
	start := time.Now()
	result, err := run(req, cfg)
	s.observeSolve("bisection", req.Problem, result, err, time.Since(start))
	if err != nil {
		s.respondSolveError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSolveOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSolveRequest(w, r)
	if !ok {
		return
	}

	run, ok := s.optProblem(req.Problem)
	if !ok {
		s.respondError(w, http.StatusNotFound, errors.Errorf("unknown optimization problem %q", req.Problem))
		return
	}

	cfg := s.goldenConfig(req.Config)
	start := time.Now()
	result, err := run(req, cfg)
	s.observeSolve("golden", req.Problem, result, err, time.Since(start))
	if err != nil {
		s.respondSolveError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) decodeSolveRequest(w http.ResponseWriter, r *http.Request) (*SolveRequest, bool) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return nil, false
	}
	if req.Problem == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("problem is required"))
		return nil, false
	}
	return &req, true
}

func (s *Server) bisectionConfig(req *SolveConfig) bisection.Config {
	cfg := bisection.Config{
		MaxIters:    s.cfg.Solver.MaxIters,
		XAbsTol:     s.cfg.Solver.XAbsTol,
		XRelTol:     s.cfg.Solver.XRelTol,
		ResidualTol: s.cfg.Solver.ResidualTol,
	}
	if req == nil {
		return cfg
	}
	if req.MaxIters > 0 {
		cfg.MaxIters = req.MaxIters
	}
	if req.XAbsTol > 0 {
		cfg.XAbsTol = req.XAbsTol
	}
	if req.XRelTol > 0 {
		cfg.XRelTol = req.XRelTol
	}
	if req.ResidualTol > 0 {
		cfg.ResidualTol = req.ResidualTol
	}
	return cfg
}

func (s *Server) goldenConfig(req *SolveConfig) golden.Config {
	cfg := golden.Config{
		MaxIters: s.cfg.Solver.MaxIters,
		XAbsTol:  s.cfg.Solver.XAbsTol,
		XRelTol:  s.cfg.Solver.XRelTol,
	}
	if req == nil {
		return cfg
	}
	if req.MaxIters > 0 {
		cfg.MaxIters = req.MaxIters
	}
	if req.XAbsTol > 0 {
		cfg.XAbsTol = req.XAbsTol
	}
	if req.XRelTol > 0 {
		cfg.XRelTol = req.XRelTol
	}
	return cfg
}

func (s *Server) observeSolve(solverName, problem string, result *SolveResult, err error, elapsed time.Duration) {
	status := "error"
	if err == nil {
		status = result.Status
	}
	solvesTotal.WithLabelValues(solverName, problem, status).Inc()
	solveDuration.WithLabelValues(solverName, problem).Observe(elapsed.Seconds())
	if err == nil {
		solveIterations.WithLabelValues(solverName, problem).Observe(float64(result.Iters))
	}
}

// respondSolveError maps the solver error taxonomy onto HTTP statuses:
// configuration and bracket mistakes are the client's fault, model and
// problem failures mean the request reached territory the models reject.
func (s *Server) respondSolveError(w http.ResponseWriter, err error) {
	var solverErr *solver.Error
	if errors.As(err, &solverErr) {
		switch solverErr.Kind {
		case solver.KindInvalidConfig, solver.KindNonFiniteBracket,
			solver.KindZeroWidthBracket, solver.KindNoBracket:
			s.respondError(w, http.StatusBadRequest, err)
		case solver.KindModel, solver.KindProblem, solver.KindNonFiniteResidual:
			s.respondError(w, http.StatusUnprocessableEntity, err)
		default:
			s.respondError(w, http.StatusInternalServerError, err)
		}
		return
	}

	var appErr *errors.Error
	if errors.As(err, &appErr) {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	s.respondError(w, http.StatusInternalServerError, err)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}
