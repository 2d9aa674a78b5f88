package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

type EventKind string

const (
	EventKindSignalIgnored EventKind = "signal_ignored"
	EventKindStrategyError EventKind = "strategy_error"
	EventKindStopLoss      EventKind = "stop_loss"
	EventKindTakeProfit    EventKind = "take_profit"
	EventKindMarginCall    EventKind = "margin_call"
	EventKindLiquidation   EventKind = "liquidation"
)

// Event is a per-bar diagnostic recorded by the engine.
type Event struct {
	BarIndex int       `json:"bar_index"`
	Time     time.Time `json:"time"`
	Kind     EventKind `json:"kind"`
	// Code is the numeric error code behind the event, or 0.
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BacktestResult is the value handed back to the caller of a run.
// It is built once and never retained by the engine.
type BacktestResult struct {
	Success    bool      `json:"success"`
	BacktestID string    `json:"backtest_id"`
	Status     RunStatus `json:"status"`
	// Partial is set when the run stopped before the last bar.
	Partial bool `json:"partial"`

	Strategy  string    `json:"strategy"`
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Seed      int64     `json:"seed"`

	Trades          []Trade             `json:"trades"`
	EquityCurve     []PortfolioSnapshot `json:"equity_curve"`
	Performance     PerformanceReport   `json:"performance"`
	ExecutionTimeMs int64               `json:"execution_time_ms"`

	BarsProcessed int `json:"bars_processed"`
	// SkippedBars counts bars whose strategy invocation failed.
	SkippedBars    int     `json:"skipped_bars"`
	IgnoredSignals int     `json:"ignored_signals"`
	Events         []Event `json:"events"`

	Error optional.Option[string] `json:"error"`
}
