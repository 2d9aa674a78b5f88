package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PerformanceReport holds the metrics computed from one finished run.
// Ratios and returns are fractions (0.05 is 5%).
type PerformanceReport struct {
	TotalReturn       float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn  float64 `yaml:"annualized_return" json:"annualized_return"`
	Volatility        float64 `yaml:"volatility" json:"volatility"`
	DownsideDeviation float64 `yaml:"downside_deviation" json:"downside_deviation"`
	SharpeRatio       float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio      float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio       float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	MaxDrawdown       float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownDuration counts bars in the longest stretch below a prior peak.
	MaxDrawdownDuration int     `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	VaR95               float64 `yaml:"var_95" json:"var_95"`
	CVaR95              float64 `yaml:"cvar_95" json:"cvar_95"`
	VaR99               float64 `yaml:"var_99" json:"var_99"`
	CVaR99              float64 `yaml:"cvar_99" json:"cvar_99"`
	Skewness            float64 `yaml:"skewness" json:"skewness"`
	Kurtosis            float64 `yaml:"kurtosis" json:"kurtosis"`

	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is 0 when there are no losing trades.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	AvgWin       float64 `yaml:"avg_win" json:"avg_win"`
	// AvgLoss is the mean P&L of losing trades and is therefore negative or zero.
	AvgLoss              float64 `yaml:"avg_loss" json:"avg_loss"`
	LargestWin           float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss          float64 `yaml:"largest_loss" json:"largest_loss"`
	MaxConsecutiveWins   int     `yaml:"max_consecutive_wins" json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses" json:"max_consecutive_losses"`
	TotalPnL             float64 `yaml:"total_pnl" json:"total_pnl"`
	TotalFees            float64 `yaml:"total_fees" json:"total_fees"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalEquity    float64 `yaml:"final_equity" json:"final_equity"`
	// Exposure is the share of bars that ended with an open position.
	Exposure float64 `yaml:"exposure" json:"exposure"`
	Periods  int     `yaml:"periods" json:"periods"`
	// GuardedMetrics names metrics whose raw value was undefined and was reported as 0.
	GuardedMetrics []string `yaml:"guarded_metrics,omitempty" json:"guarded_metrics,omitempty"`
}

// WritePerformanceReport writes the report to path as YAML.
func WritePerformanceReport(path string, report PerformanceReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal performance report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance report to file: %w", err)
	}

	return nil
}
