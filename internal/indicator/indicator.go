package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Value is the output of one indicator for the last bar of a window.
// Single-line indicators only set Value. Bollinger Bands fill the band fields and
// MACD fills Signal, Histogram and PrevHistogram alongside the MACD line in Value.
type Value struct {
	Value         float64
	Upper         float64
	Middle        float64
	Lower         float64
	Signal        float64
	Histogram     float64
	PrevHistogram float64
}

// Values maps requirement keys to the indicator output for the current bar.
// A key is absent while its indicator is still warming up.
type Values map[string]Value

// Get returns the value for key and whether it is ready.
func (v Values) Get(key string) (Value, bool) {
	value, ok := v[key]

	return value, ok
}

// Indicator interface defines methods that any technical indicator must implement.
// Implementations hold no state between calls.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Validate rejects requirements this indicator can never satisfy
	Validate(req types.DataRequirement) error
	// Lookback is the number of bars needed before a value exists
	Lookback(req types.DataRequirement) int
	// Compute evaluates the indicator over bars and returns the value at the last bar
	Compute(req types.DataRequirement, bars []types.Bar) (Value, error)
}

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func insufficient(name string, required, actual int) error {
	return errors.Wrap(
		errors.ErrCodeInsufficientData,
		"not enough data for "+name,
		&errors.InsufficientDataError{Indicator: name, Required: required, Actual: actual},
	)
}
