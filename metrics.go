package causal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("causal")

var (
	// solvesTotal 按结果统计求解次数
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "causal_solves_total",
		Help: "Total solve passes by result",
	}, []string{"result"})

	// blocksTotal 按终止状态统计块求解
	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "causal_blocks_total",
		Help: "Total block solves by solver status",
	}, []string{"status"})

	blockIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "causal_block_iterations",
		Help:    "Solver iterations per block",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
	})

	probeEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "causal_probe_evaluations_total",
		Help: "Total residual evaluations spent on structural probing",
	})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "causal_solve_duration_seconds",
		Help:    "Solve pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})
)
