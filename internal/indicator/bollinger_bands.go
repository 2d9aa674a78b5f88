package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DefaultBollingerStdDev is used when a requirement leaves StdDev at zero.
const DefaultBollingerStdDev = 2.0

// BollingerResult holds the three bands at one point in time.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands returns the SMA middle band and bands stdDev population
// standard deviations above and below it, over the last period values.
func BollingerBands(values []float64, period int, stdDev float64) (BollingerResult, error) {
	if err := validatePeriod("Bollinger Bands", period); err != nil {
		return BollingerResult{}, err
	}

	if stdDev < 0 {
		return BollingerResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "Bollinger Bands stdDev must not be negative, got %f", stdDev)
	}

	middle, err := SMA(values, period)
	if err != nil {
		return BollingerResult{}, err
	}

	variance := 0.0
	for _, v := range values[len(values)-period:] {
		diff := v - middle
		variance += diff * diff
	}

	sd := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Upper:  middle + stdDev*sd,
		Middle: middle,
		Lower:  middle - stdDev*sd,
	}, nil
}

// BollingerBandsIndicator computes the bands over bar closes.
type BollingerBandsIndicator struct{}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands() Indicator {
	return &BollingerBandsIndicator{}
}

func (b *BollingerBandsIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

func (b *BollingerBandsIndicator) Validate(req types.DataRequirement) error {
	if req.StdDev < 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "Bollinger Bands stdDev must not be negative, got %f", req.StdDev)
	}

	return validatePeriod("Bollinger Bands", req.Period)
}

func (b *BollingerBandsIndicator) Lookback(req types.DataRequirement) int {
	return req.Period
}

func (b *BollingerBandsIndicator) Compute(req types.DataRequirement, bars []types.Bar) (Value, error) {
	stdDev := req.StdDev
	if stdDev == 0 {
		stdDev = DefaultBollingerStdDev
	}

	bands, err := BollingerBands(types.Closes(bars), req.Period, stdDev)
	if err != nil {
		return Value{}, err
	}

	return Value{Value: bands.Middle, Upper: bands.Upper, Middle: bands.Middle, Lower: bands.Lower}, nil
}
