package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	defaultFastPeriod = 10
	defaultSlowPeriod = 30
)

// SMACrossover goes long when the fast SMA crosses above the slow SMA and
// exits when it crosses back below.
type SMACrossover struct {
	fast   int
	slow   int
	sizing Sizing
}

func NewSMACrossover(fast, slow int, sizing Sizing) (Strategy, error) {
	if fast == 0 {
		fast = defaultFastPeriod
	}

	if slow == 0 {
		slow = defaultSlowPeriod
	}

	if fast < 0 || slow < 0 || fast >= slow {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "sma_crossover needs 0 < fast_period < slow_period, got %d and %d", fast, slow)
	}

	return &SMACrossover{fast: fast, slow: slow, sizing: sizing}, nil
}

func (s *SMACrossover) Name() string {
	return string(types.StrategyTypeSMACrossover)
}

func (s *SMACrossover) DeclareDataRequirements() []types.DataRequirement {
	return []types.DataRequirement{
		{Key: "fast", Indicator: types.IndicatorTypeSMA, Period: s.fast},
		{Key: "slow", Indicator: types.IndicatorTypeSMA, Period: s.slow},
		// one extra bar to compare against the previous crossover state
		{Key: "history", Indicator: types.IndicatorTypeHistory, Period: s.slow + 1},
	}
}

func (s *SMACrossover) OnBar(history []types.Bar, values indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	fast, okFast := values.Get("fast")
	slow, okSlow := values.Get("slow")

	if !okFast || !okSlow || len(history) < s.slow+1 {
		return optional.None[types.Signal](), nil
	}

	prevCloses := types.Closes(history[:len(history)-1])

	prevFast, err := indicator.SMA(prevCloses, s.fast)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	prevSlow, err := indicator.SMA(prevCloses, s.slow)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	price := last(history).Close

	// exits are checked before entries
	if prevFast >= prevSlow && fast.Value < slow.Value {
		return s.sizing.Bearish(view, price, fmt.Sprintf("SMA%d crossed below SMA%d", s.fast, s.slow)), nil
	}

	if prevFast <= prevSlow && fast.Value > slow.Value {
		return s.sizing.Bullish(view, price, fmt.Sprintf("SMA%d crossed above SMA%d", s.fast, s.slow)), nil
	}

	return optional.None[types.Signal](), nil
}
