package types

type IndicatorType string

const (
	// IndicatorTypeHistory requests a raw window of bars without computing anything.
	IndicatorTypeHistory        IndicatorType = "history"
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
)

// DataRequirement is one input a strategy needs on every bar.
// Key names the computed value in the indicator map handed to the strategy.
type DataRequirement struct {
	Key       string        `json:"key" validate:"required"`
	Indicator IndicatorType `json:"indicator" validate:"required,oneof=history sma ema rsi macd bollinger_bands"`
	// Period is the main lookback. For MACD it is the fast period.
	Period int `json:"period" validate:"gte=1"`
	// SlowPeriod and SignalPeriod are only read by MACD.
	SlowPeriod   int `json:"slow_period,omitempty" validate:"gte=0"`
	SignalPeriod int `json:"signal_period,omitempty" validate:"gte=0"`
	// StdDev is the band width multiplier for Bollinger Bands.
	StdDev float64 `json:"std_dev,omitempty" validate:"gte=0"`
}
