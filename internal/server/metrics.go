package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kelvin",
		Name:      "solves_total",
		Help:      "Solve requests by solver, problem and outcome.",
	}, []string{"solver", "problem", "status"})

	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kelvin",
		Name:      "solve_duration_seconds",
		Help:      "Wall time of solve requests.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"solver", "problem"})

	solveIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kelvin",
		Name:      "solve_iterations",
		Help:      "Iterations performed per completed solve.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"solver", "problem"})
)
