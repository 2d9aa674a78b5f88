// Package metrics exposes backtest run metrics on a caller-owned registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const namespace = "argo_backtest"

// Recorder holds the backtest collectors. A nil *Recorder records nothing.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	barsProcessed  *prometheus.CounterVec
	strategyErrors *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy and final status",
		}, []string{"strategy", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of backtest runs",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"strategy"}),
		barsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bars_processed_total",
			Help:      "Total number of bars replayed",
		}, []string{"strategy"}),
		strategyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_errors_total",
			Help:      "Total number of bars whose strategy invocation failed",
		}, []string{"strategy"}),
	}

	for _, c := range []prometheus.Collector{r.runsTotal, r.runDuration, r.barsProcessed, r.strategyErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// RecordRun records one finished run.
func (r *Recorder) RecordRun(result types.BacktestResult, duration time.Duration) {
	if r == nil {
		return
	}

	strategy := result.Strategy
	if strategy == "" {
		strategy = "unknown"
	}

	status := string(result.Status)
	if status == "" {
		status = string(types.RunStatusFailed)
	}

	r.runsTotal.WithLabelValues(strategy, status).Inc()
	r.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	r.barsProcessed.WithLabelValues(strategy).Add(float64(result.BarsProcessed))
	r.strategyErrors.WithLabelValues(strategy).Add(float64(result.SkippedBars))
}
