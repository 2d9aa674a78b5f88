package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RSI returns the Relative Strength Index at the last value using Wilder's smoothing.
// It needs period+1 values. A window with no losses reports 100.
func RSI(values []float64, period int) (float64, error) {
	if err := validatePeriod("RSI", period); err != nil {
		return 0, err
	}

	if len(values) < period+1 {
		return 0, insufficient("RSI", period+1, len(values))
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average over the first period changes
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

// RSIIndicator computes RSI over bar closes.
type RSIIndicator struct{}

// NewRSI creates a new RSI indicator.
func NewRSI() Indicator {
	return &RSIIndicator{}
}

func (r *RSIIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *RSIIndicator) Validate(req types.DataRequirement) error {
	return validatePeriod("RSI", req.Period)
}

func (r *RSIIndicator) Lookback(req types.DataRequirement) int {
	return req.Period + 1
}

func (r *RSIIndicator) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	rsi, err := RSI(types.Closes(bars), req.Period)
	if err != nil {
		return Value{}, err
	}

	return Value{Value: rsi}, nil
}
