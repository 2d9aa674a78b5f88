package types

import "time"

type PositionSide string

const (
	PositionSideFlat  PositionSide = "flat"
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

type ExitReason string

const (
	ExitReasonSignal      ExitReason = "signal"
	ExitReasonStopLoss    ExitReason = "stop_loss"
	ExitReasonTakeProfit  ExitReason = "take_profit"
	ExitReasonMarginCall  ExitReason = "margin_call"
	ExitReasonLiquidation ExitReason = "liquidation"
)

// Trade is a realized entry/exit pair. Trades are immutable once recorded.
type Trade struct {
	Side       PositionSide `json:"side" yaml:"side"`
	EntryTime  time.Time    `json:"entry_time" yaml:"entry_time"`
	EntryPrice float64      `json:"entry_price" yaml:"entry_price"`
	ExitTime   time.Time    `json:"exit_time" yaml:"exit_time"`
	ExitPrice  float64      `json:"exit_price" yaml:"exit_price"`
	Quantity   float64      `json:"quantity" yaml:"quantity"`
	// Fee is the sum of the entry and exit fees.
	Fee float64 `json:"fee" yaml:"fee"`
	// PnL is the realized profit after both fees.
	// For a long: (exit-entry)*quantity - fee. For a short: (entry-exit)*quantity - fee.
	PnL        float64    `json:"pnl" yaml:"pnl"`
	ExitReason ExitReason `json:"exit_reason" yaml:"exit_reason"`
}

// PortfolioView is the read-only copy of portfolio state a strategy sees on each bar.
type PortfolioView struct {
	Side       PositionSide
	Quantity   float64
	EntryPrice float64
	Cash       float64
	Equity     float64
}

// IsFlat reports whether no position is open.
func (v PortfolioView) IsFlat() bool {
	return v.Side == PositionSideFlat || v.Side == ""
}

// PortfolioSnapshot is one point on the equity curve.
type PortfolioSnapshot struct {
	Time          time.Time `json:"time" yaml:"time"`
	Cash          float64   `json:"cash" yaml:"cash"`
	PositionValue float64   `json:"position_value" yaml:"position_value"`
	Equity        float64   `json:"equity" yaml:"equity"`
	// Drawdown is the running decline from the equity peak as a fraction of that peak.
	Drawdown float64 `json:"drawdown" yaml:"drawdown"`
}
