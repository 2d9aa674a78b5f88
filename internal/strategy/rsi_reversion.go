package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RSIReversion buys oversold readings and sells overbought ones.
type RSIReversion struct {
	period int
	lower  float64
	upper  float64
	sizing Sizing
}

func NewRSIReversion(period int, lower, upper float64, sizing Sizing) (Strategy, error) {
	if period == 0 {
		period = 14
	}

	if lower == 0 {
		lower = 30
	}

	if upper == 0 {
		upper = 70
	}

	if period < 0 || lower >= upper {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "rsi_reversion needs a positive period and lower < upper, got %d, %v, %v", period, lower, upper)
	}

	return &RSIReversion{period: period, lower: lower, upper: upper, sizing: sizing}, nil
}

func (r *RSIReversion) Name() string {
	return string(types.StrategyTypeRSIReversion)
}

func (r *RSIReversion) DeclareDataRequirements() []types.DataRequirement {
	return []types.DataRequirement{
		{Key: "rsi", Indicator: types.IndicatorTypeRSI, Period: r.period},
	}
}

func (r *RSIReversion) OnBar(history []types.Bar, values indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	rsi, ok := values.Get("rsi")
	if !ok {
		return optional.None[types.Signal](), nil
	}

	price := last(history).Close

	if rsi.Value > r.upper {
		return r.sizing.Bearish(view, price, fmt.Sprintf("RSI overbought (value=%.2f)", rsi.Value)), nil
	}

	if rsi.Value < r.lower {
		return r.sizing.Bullish(view, price, fmt.Sprintf("RSI oversold (value=%.2f)", rsi.Value)), nil
	}

	return optional.None[types.Signal](), nil
}
