package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACDResult holds the three MACD lines at one point in time.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
	// PrevHistogram is the histogram one value earlier, or 0 when the input
	// holds exactly the minimum number of values.
	PrevHistogram float64
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal EMA and the
// histogram at the last value. It needs slow+signal-1 values.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	if err := validateMACD(fast, slow, signal); err != nil {
		return MACDResult{}, err
	}

	required := slow + signal - 1
	if len(values) < required {
		return MACDResult{}, insufficient("MACD", required, len(values))
	}

	fastSeries, err := EMASeries(values, fast)
	if err != nil {
		return MACDResult{}, err
	}

	slowSeries, err := EMASeries(values, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// fastSeries starts at index fast-1, slowSeries at slow-1; align both on slow-1.
	offset := slow - fast
	line := make([]float64, len(slowSeries))

	for i := range slowSeries {
		line[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := EMASeries(line, signal)
	if err != nil {
		return MACDResult{}, err
	}

	n := len(line)
	m := len(signalSeries)
	result := MACDResult{
		MACD:      line[n-1],
		Signal:    signalSeries[m-1],
		Histogram: line[n-1] - signalSeries[m-1],
	}

	if m > 1 {
		result.PrevHistogram = line[n-2] - signalSeries[m-2]
	}

	return result, nil
}

func validateMACD(fast, slow, signal int) error {
	if err := validatePeriod("MACD fast", fast); err != nil {
		return err
	}

	if err := validatePeriod("MACD slow", slow); err != nil {
		return err
	}

	if err := validatePeriod("MACD signal", signal); err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "MACD fast period %d must be less than slow period %d", fast, slow)
	}

	return nil
}

// MACDIndicator computes MACD over bar closes. The requirement's Period is the
// fast period.
type MACDIndicator struct{}

// NewMACD creates a new MACD indicator.
func NewMACD() Indicator {
	return &MACDIndicator{}
}

func (m *MACDIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

func (m *MACDIndicator) Validate(req types.DataRequirement) error {
	return validateMACD(req.Period, req.SlowPeriod, req.SignalPeriod)
}

func (m *MACDIndicator) Lookback(req types.DataRequirement) int {
	return req.SlowPeriod + req.SignalPeriod - 1
}

func (m *MACDIndicator) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	result, err := MACD(types.Closes(bars), req.Period, req.SlowPeriod, req.SignalPeriod)
	if err != nil {
		return Value{}, err
	}

	return Value{Value: result.MACD, Signal: result.Signal, Histogram: result.Histogram, PrevHistogram: result.PrevHistogram}, nil
}
