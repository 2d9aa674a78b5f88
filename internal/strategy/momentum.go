package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Momentum buys when the price rises against the prior bar and sells when it falls.
type Momentum struct {
	sizing Sizing
}

func NewMomentum(sizing Sizing) Strategy {
	return &Momentum{sizing: sizing}
}

func (m *Momentum) Name() string {
	return string(types.StrategyTypeMomentum)
}

func (m *Momentum) DeclareDataRequirements() []types.DataRequirement {
	return []types.DataRequirement{
		{Key: "history", Indicator: types.IndicatorTypeHistory, Period: 2},
	}
}

func (m *Momentum) OnBar(history []types.Bar, _ indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	if len(history) < 2 {
		return optional.None[types.Signal](), nil
	}

	prev := history[len(history)-2].Close
	cur := last(history).Close

	switch {
	case cur > prev:
		return m.sizing.Bullish(view, cur, fmt.Sprintf("price rose from %v to %v", prev, cur)), nil
	case cur < prev:
		return m.sizing.Bearish(view, cur, fmt.Sprintf("price fell from %v to %v", prev, cur)), nil
	default:
		return optional.None[types.Signal](), nil
	}
}
