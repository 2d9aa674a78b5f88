package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for a single run.
// Callbacks with an error return abort the run when they return an error.

// OnRunStartCallback is called once before the first bar with the number of bars to replay.
type OnRunStartCallback func(backtestID string, totalBars int) error

// OnProcessBarCallback is called after each bar has been processed.
type OnProcessBarCallback func(current int, total int) error

// OnRunEndCallback is called when the run reaches a terminal state (always called via defer).
type OnRunEndCallback func(status types.RunStatus, err error)

// LifecycleCallbacks holds the lifecycle callback functions for the engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart   *OnRunStartCallback
	OnProcessBar *OnProcessBarCallback
	OnRunEnd     *OnRunEndCallback
}

// Output is everything the engine produced for one run.
type Output struct {
	Status types.RunStatus
	// Partial is set when the run stopped before the last bar.
	Partial        bool
	Trades         []types.Trade
	EquityCurve    []types.PortfolioSnapshot
	Events         []types.Event
	BarsProcessed  int
	SkippedBars    int
	IgnoredSignals int
	StrategyErrors int
}

// Engine replays one bar series through one strategy. An engine serves a single
// run: it moves Idle -> Running -> {Completed, Failed, Cancelled} and never back.
type Engine interface {
	// Run replays bars in order. The context is checked before every bar.
	// The Output is populated on failure and cancellation too.
	Run(ctx context.Context, bars []types.Bar) (Output, error)
	// Status returns the current lifecycle state.
	Status() types.RunStatus
}
