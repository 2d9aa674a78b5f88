package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if err := validatePeriod("SMA", period); err != nil {
		return 0, err
	}

	if len(values) < period {
		return 0, insufficient("SMA", period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// MA is the simple moving average indicator over bar closes.
type MA struct{}

// NewMA creates a new simple moving average indicator.
func NewMA() Indicator {
	return &MA{}
}

func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

func (m *MA) Validate(req types.DataRequirement) error {
	return validatePeriod("SMA", req.Period)
}

func (m *MA) Lookback(req types.DataRequirement) int {
	return req.Period
}

func (m *MA) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	sma, err := SMA(types.Closes(bars), req.Period)
	if err != nil {
		return Value{}, err
	}

	return Value{Value: sma}, nil
}

// History exposes the raw close of the latest bar once period bars exist.
// Strategies use it to declare how much raw history they need.
type History struct{}

// NewHistory creates the raw history requirement handler.
func NewHistory() Indicator {
	return &History{}
}

func (h *History) Name() types.IndicatorType {
	return types.IndicatorTypeHistory
}

func (h *History) Validate(req types.DataRequirement) error {
	return validatePeriod("history", req.Period)
}

func (h *History) Lookback(req types.DataRequirement) int {
	return req.Period
}

func (h *History) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	if len(bars) < req.Period {
		return Value{}, insufficient("history", req.Period, len(bars))
	}

	return Value{Value: bars[len(bars)-1].Close}, nil
}
