package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataGenerator produces seeded OHLCV bars for tests and benchmarks. Nothing
// on the run path uses it.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator. The same seed yields the same bars.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig shapes the generated series.
type GeneratorConfig struct {
	StartTime    time.Time
	Timeframe    types.Timeframe
	Count        int
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns (0.01 = 1%).
	Volatility float64
	// Trend is the total drift spread over the whole series.
	Trend          float64
	VolumeBase     float64
	VolumeVariance float64
}

// DefaultConfig returns a 1m series of 10,000 bars starting at 100.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Timeframe:      types.Timeframe1m,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate walks a geometric Brownian motion and returns bars that satisfy
// Bar.Validate, strictly ascending by time.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	interval := config.Timeframe.Duration()
	if interval == 0 {
		interval = time.Minute
	}

	for i := range config.Count {
		open := roundToDecimals(price, 4)

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		closePrice = roundToDecimals(closePrice, 4)

		high := roundToDecimals(math.Max(open, closePrice)+g.rng.Float64()*config.Volatility*open*0.5, 4)
		low := roundToDecimals(math.Min(open, closePrice)-g.rng.Float64()*config.Volatility*open*0.5, 4)

		if low <= 0 {
			low = roundToDecimals(math.Min(open, closePrice)*0.99, 4)
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:   at,
			Open:   open,
			High:   math.Max(high, math.Max(open, closePrice)),
			Low:    math.Min(low, math.Min(open, closePrice)),
			Close:  closePrice,
			Volume: roundToDecimals(volume, 2),
		}

		price = closePrice
		at = at.Add(interval)
	}

	return bars
}

// Generate10K returns 10,000 default bars with seed 42.
func Generate10K() []types.Bar {
	return NewDataGenerator(42).Generate(DefaultConfig())
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
