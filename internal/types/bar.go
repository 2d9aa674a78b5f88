package types

import (
	"fmt"
	"time"
)

// Timeframe is the bucket width of a bar series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

// AllTimeframes lists the supported timeframes in ascending width.
var AllTimeframes = []any{
	string(Timeframe1m), string(Timeframe5m), string(Timeframe15m), string(Timeframe30m),
	string(Timeframe1h), string(Timeframe4h), string(Timeframe1d), string(Timeframe1w),
}

// Duration returns the width of one bar, or 0 for an unknown timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe30m:
		return 30 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	case Timeframe1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ProductType is the market the symbol trades on.
type ProductType string

const (
	ProductTypeSpot    ProductType = "spot"
	ProductTypeMargin  ProductType = "margin"
	ProductTypeFutures ProductType = "futures"
)

// Bar is one OHLCV record. Bars are never mutated after they are loaded.
type Bar struct {
	Time   time.Time `json:"time" csv:"time"`
	Open   float64   `json:"open" csv:"open"`
	High   float64   `json:"high" csv:"high"`
	Low    float64   `json:"low" csv:"low"`
	Close  float64   `json:"close" csv:"close"`
	Volume float64   `json:"volume" csv:"volume"`
}

// Validate checks the OHLCV invariants of a single bar.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("bar has no timestamp")
	}

	if b.Low <= 0 {
		return fmt.Errorf("bar at %s has non-positive low %v", b.Time.Format(time.RFC3339), b.Low)
	}

	upper := max(b.Open, b.Close)
	lower := min(b.Open, b.Close)

	if b.High < upper || lower < b.Low {
		return fmt.Errorf("bar at %s violates high >= max(open, close) >= min(open, close) >= low (o=%v h=%v l=%v c=%v)",
			b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}

	if b.Volume < 0 {
		return fmt.Errorf("bar at %s has negative volume %v", b.Time.Format(time.RFC3339), b.Volume)
	}

	return nil
}

// Closes extracts the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}
