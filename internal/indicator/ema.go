package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// EMASeries returns the exponential moving average at every index from period-1
// onwards. The first value is seeded with the SMA of the first period values and
// later values use alpha = 2/(period+1).
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := validatePeriod("EMA", period); err != nil {
		return nil, err
	}

	if len(values) < period {
		return nil, insufficient("EMA", period, len(values))
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	seed /= float64(period)

	alpha := 2.0 / float64(period+1)
	series := make([]float64, 0, len(values)-period+1)
	series = append(series, seed)

	prev := seed
	for _, v := range values[period:] {
		prev = alpha*v + (1-alpha)*prev
		series = append(series, prev)
	}

	return series, nil
}

// EMA returns the exponential moving average at the last value.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}

// EMAIndicator computes the EMA over bar closes.
type EMAIndicator struct{}

// NewEMA creates a new EMA indicator.
func NewEMA() Indicator {
	return &EMAIndicator{}
}

func (e *EMAIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *EMAIndicator) Validate(req types.DataRequirement) error {
	return validatePeriod("EMA", req.Period)
}

func (e *EMAIndicator) Lookback(req types.DataRequirement) int {
	return req.Period
}

func (e *EMAIndicator) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	ema, err := EMA(types.Closes(bars), req.Period)
	if err != nil {
		return Value{}, err
	}

	return Value{Value: ema}, nil
}
