package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

const (
	// WarmupFactor scales the longest lookback into the warm-up margin of the
	// default history window.
	WarmupFactor = 4
	// MinWarmupBars is the smallest warm-up margin of the default history window.
	MinWarmupBars = 100
)

// Config holds the engine tunables derived from a BacktestConfig.
type Config struct {
	InitialCapital      decimal.Decimal
	FeeRate             decimal.Decimal
	AllowShort          bool
	WaiveLiquidationFee bool
	// SlippageBps is the largest adverse slippage applied to signal fills.
	SlippageBps float64
	// MaxStrategyErrorRatio is the share of processed bars allowed to fail.
	MaxStrategyErrorRatio float64
	// ErrorRatioMinBars is how many bars must be processed before the ratio is enforced mid-run.
	ErrorRatioMinBars int
	// HistoryWindow bounds the bars visible to the strategy. 0 means the longest
	// declared lookback plus a warm-up margin.
	HistoryWindow int
}

// EmptyConfig returns a config with the engine defaults and no capital.
func EmptyConfig() Config {
	return Config{
		InitialCapital:        decimal.Zero,
		FeeRate:               decimal.Zero,
		MaxStrategyErrorRatio: types.DefaultMaxStrategyErrorRatio,
		ErrorRatioMinBars:     types.DefaultErrorRatioMinBars,
	}
}

// ConfigFromBacktest copies the engine tunables out of a run config.
func ConfigFromBacktest(cfg types.BacktestConfig) Config {
	return Config{
		InitialCapital:        cfg.InitialCapital,
		FeeRate:               cfg.FeeRate,
		AllowShort:            cfg.AllowShort,
		WaiveLiquidationFee:   cfg.WaiveLiquidationFee,
		SlippageBps:           cfg.SlippageBps,
		MaxStrategyErrorRatio: cfg.MaxStrategyErrorRatio,
		ErrorRatioMinBars:     cfg.ErrorRatioMinBars,
		HistoryWindow:         cfg.HistoryWindow,
	}
}
