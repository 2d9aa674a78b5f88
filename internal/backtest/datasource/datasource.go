package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// BarSource supplies stored OHLCV bars. Implementations return bars strictly
// ascending by time and never fill gaps. An empty result is a valid answer.
type BarSource interface {
	FetchBars(ctx context.Context, req BarRequest) ([]types.Bar, error)
}

// BarRequest identifies a bar series and an inclusive time range.
type BarRequest struct {
	Exchange  string          `validate:"required"`
	Symbol    string          `validate:"required"`
	Timeframe types.Timeframe `validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Start     time.Time       `validate:"required"`
	End       time.Time       `validate:"required"`
}

// RequestFromConfig builds the request a run config asks for.
func RequestFromConfig(cfg types.BacktestConfig) BarRequest {
	return BarRequest{
		Exchange:  cfg.Exchange,
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Start:     cfg.Start,
		End:       cfg.End,
	}
}

// Validate checks the request fields and that Start is not after End.
func (r BarRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}

	if r.Start.After(r.End) {
		return fmt.Errorf("start %s is after end %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}

	return nil
}

// SeriesKey identifies the series regardless of range.
func (r BarRequest) SeriesKey() string {
	return fmt.Sprintf("%s|%s|%s", r.Exchange, r.Symbol, r.Timeframe)
}

// Key identifies the series and range.
func (r BarRequest) Key() string {
	return fmt.Sprintf("%s|%d|%d", r.SeriesKey(), r.Start.UnixNano(), r.End.UnixNano())
}

func (r BarRequest) String() string {
	return fmt.Sprintf("%s %s %s [%s, %s]", r.Exchange, r.Symbol, r.Timeframe,
		r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}
