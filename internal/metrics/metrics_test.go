package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewRecorder(reg)
	require.NoError(t, err)

	recorder.RecordRun(types.BacktestResult{
		Strategy:      "momentum",
		Status:        types.RunStatusCompleted,
		BarsProcessed: 100,
		SkippedBars:   3,
	}, 50*time.Millisecond)
	recorder.RecordRun(types.BacktestResult{
		Strategy:      "momentum",
		Status:        types.RunStatusFailed,
		BarsProcessed: 20,
	}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.runsTotal.WithLabelValues("momentum", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.runsTotal.WithLabelValues("momentum", "failed")))
	assert.Equal(t, 120.0, testutil.ToFloat64(recorder.barsProcessed.WithLabelValues("momentum")))
	assert.Equal(t, 3.0, testutil.ToFloat64(recorder.strategyErrors.WithLabelValues("momentum")))
	assert.Equal(t, 1, testutil.CollectAndCount(recorder.runDuration))
}

func TestRecordRunDefaultsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewRecorder(reg)
	require.NoError(t, err)

	recorder.RecordRun(types.BacktestResult{}, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.runsTotal.WithLabelValues("unknown", "failed")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	_, err := NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	_, err = NewRecorder(prometheus.NewRegistry())
	assert.NoError(t, err)
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var recorder *Recorder

	assert.NotPanics(t, func() {
		recorder.RecordRun(types.BacktestResult{Strategy: "momentum"}, time.Second)
	})
}
