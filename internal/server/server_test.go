package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/KELVIN/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Solver.MaxIters = 200
	cfg.Solver.XAbsTol = 1e-9
	cfg.Solver.XRelTol = 0
	cfg.Solver.ResidualTol = 1e-9

	srv := NewServer(cfg, zap.NewNop())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func postSolve(t *testing.T, ts *httptest.Server, path string, req SolveRequest) (*http.Response, *SolveResult) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	var result SolveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, &result
}

func TestSolveRootTankHoldTime(t *testing.T) {
	ts := newTestServer(t)

	resp, result := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "tank-hold-time",
		Params: map[string]float64{
			"mass":         1000,
			"cp":           4186,
			"ua":           500,
			"initial_temp": 363.15,
			"ambient_temp": 293.15,
			"target_temp":  313.15,
		},
		Bracket: [2]float64{0, 1e6},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "converged", result.Status)
	assert.InDelta(t, 10488.1, result.X, 1.0)
	assert.Greater(t, result.Iters, 0)
	assert.Empty(t, result.Trace)
}

func TestSolveRootWithTrace(t *testing.T) {
	ts := newTestServer(t)

	resp, result := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "boiling-pressure",
		Params:  map[string]float64{"target_temp": 373.15},
		Bracket: [2]float64{5e3, 1000e3},
		Config:  &SolveConfig{XAbsTol: 1e-3, ResidualTol: 1e-6},
		Trace:   true,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 101325, result.X, 10)
	require.NotEmpty(t, result.Trace)
	assert.Equal(t, 1, result.Trace[0].Iter)
	assert.Equal(t, result.Iters, result.Trace[len(result.Trace)-1].Iter)
}

func TestSolveOptimizeHXArea(t *testing.T) {
	ts := newTestServer(t)

	resp, result := postSolve(t, ts, "/api/v1/solve/optimize", SolveRequest{
		Problem: "hx-area",
		Params: map[string]float64{
			"u":          500,
			"c_hot":      2000,
			"c_cold":     3000,
			"t_hot_in":   423.15,
			"t_cold_in":  293.15,
			"duty_value": 1.0,
			"area_cost":  2000,
		},
		Bracket: [2]float64{0, 100},
		Config:  &SolveConfig{XAbsTol: 1e-6},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "converged", result.Status)
	assert.Greater(t, result.X, 0.0)
	assert.Less(t, result.X, 100.0)
	assert.Greater(t, result.Value, 0.0)
}

func TestSolveUnknownProblem(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "perpetual-motion",
		Bracket: [2]float64{0, 1},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSolveMissingParameter(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "tank-hold-time",
		Params:  map[string]float64{"mass": 1000},
		Bracket: [2]float64{0, 1e6},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSolveNoBracketIsClientError(t *testing.T) {
	ts := newTestServer(t)

	// Saturation stays below 420 K across this pressure range: no sign change.
	resp, _ := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "boiling-pressure",
		Params:  map[string]float64{"target_temp": 500},
		Bracket: [2]float64{5e3, 400e3},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSolveModelFailureIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)

	// Bracket reaches outside the tabulated saturation range, so the model
	// itself fails at an endpoint.
	resp, _ := postSolve(t, ts, "/api/v1/solve/root", SolveRequest{
		Problem: "boiling-pressure",
		Params:  map[string]float64{"target_temp": 373.15},
		Bracket: [2]float64{1e3, 1000e3},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSolveInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/solve/root", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProblemCatalog(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/problems")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	assert.Contains(t, catalog["root"], "tank-hold-time")
	assert.Contains(t, catalog["optimize"], "hx-area")
}
