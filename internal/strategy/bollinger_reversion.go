package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BollingerReversion buys a price under the lower band and exits a long once
// price recovers to the middle band. A price above the upper band is bearish.
type BollingerReversion struct {
	period int
	stdDev float64
	sizing Sizing
}

func NewBollingerReversion(period int, stdDev float64, sizing Sizing) (Strategy, error) {
	if period == 0 {
		period = 20
	}

	if stdDev == 0 {
		stdDev = indicator.DefaultBollingerStdDev
	}

	if period < 0 || stdDev < 0 {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "bollinger_reversion needs a positive period and std_dev, got %d and %v", period, stdDev)
	}

	return &BollingerReversion{period: period, stdDev: stdDev, sizing: sizing}, nil
}

func (b *BollingerReversion) Name() string {
	return string(types.StrategyTypeBollingerReversion)
}

func (b *BollingerReversion) DeclareDataRequirements() []types.DataRequirement {
	return []types.DataRequirement{
		{Key: "bb", Indicator: types.IndicatorTypeBollingerBands, Period: b.period, StdDev: b.stdDev},
	}
}

func (b *BollingerReversion) OnBar(history []types.Bar, values indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	bands, ok := values.Get("bb")
	if !ok {
		return optional.None[types.Signal](), nil
	}

	price := last(history).Close

	switch {
	case view.Side == types.PositionSideLong && price >= bands.Middle:
		return optional.Some(types.Signal{Type: types.SignalTypeSell, Reason: "price reverted to middle band"}), nil
	case view.Side == types.PositionSideShort && price <= bands.Middle:
		return optional.Some(types.Signal{Type: types.SignalTypeBuy, Reason: "price reverted to middle band"}), nil
	case price < bands.Lower:
		return b.sizing.Bullish(view, price, fmt.Sprintf("price %.4f below lower band %.4f", price, bands.Lower)), nil
	case price > bands.Upper:
		return b.sizing.Bearish(view, price, fmt.Sprintf("price %.4f above upper band %.4f", price, bands.Upper)), nil
	default:
		return optional.None[types.Signal](), nil
	}
}
