package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACDCrossover trades the MACD line crossing its signal line, read as a change
// in the histogram's sign.
type MACDCrossover struct {
	fast   int
	slow   int
	signal int
	sizing Sizing
}

func NewMACDCrossover(fast, slow, signal int, sizing Sizing) (Strategy, error) {
	if fast == 0 {
		fast = 12
	}

	if slow == 0 {
		slow = 26
	}

	if signal == 0 {
		signal = 9
	}

	if fast < 0 || signal < 0 || fast >= slow {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "macd_crossover needs 0 < fast < slow and a positive signal period, got %d/%d/%d", fast, slow, signal)
	}

	return &MACDCrossover{fast: fast, slow: slow, signal: signal, sizing: sizing}, nil
}

func (m *MACDCrossover) Name() string {
	return string(types.StrategyTypeMACDCrossover)
}

func (m *MACDCrossover) lookback() int {
	return m.slow + m.signal - 1
}

func (m *MACDCrossover) DeclareDataRequirements() []types.DataRequirement {
	return []types.DataRequirement{
		{Key: "macd", Indicator: types.IndicatorTypeMACD, Period: m.fast, SlowPeriod: m.slow, SignalPeriod: m.signal},
		{Key: "history", Indicator: types.IndicatorTypeHistory, Period: m.lookback() + 1},
	}
}

func (m *MACDCrossover) OnBar(history []types.Bar, values indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	current, ok := values.Get("macd")
	if !ok || len(history) < m.lookback()+1 {
		return optional.None[types.Signal](), nil
	}

	// history holds at least lookback+1 bars, so the previous histogram exists
	prev := current.PrevHistogram
	price := last(history).Close

	if prev >= 0 && current.Histogram < 0 {
		return m.sizing.Bearish(view, price, "MACD crossed below signal"), nil
	}

	if prev <= 0 && current.Histogram > 0 {
		return m.sizing.Bullish(view, price, "MACD crossed above signal"), nil
	}

	return optional.None[types.Signal](), nil
}
