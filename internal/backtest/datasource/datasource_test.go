package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BarRequestTestSuite struct {
	suite.Suite
}

func TestBarRequestSuite(t *testing.T) {
	suite.Run(t, new(BarRequestTestSuite))
}

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func testRequest() BarRequest {
	return BarRequest{
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Timeframe: types.Timeframe1h,
		Start:     baseTime,
		End:       baseTime.Add(24 * time.Hour),
	}
}

func hourlyBars(n int, from time.Time) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range n {
		price := 100 + float64(i)
		bars[i] = types.Bar{
			Time:   from.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 10,
		}
	}

	return bars
}

func (suite *BarRequestTestSuite) TestValidate() {
	suite.NoError(testRequest().Validate())

	tests := []struct {
		name   string
		modify func(*BarRequest)
	}{
		{"missing exchange", func(r *BarRequest) { r.Exchange = "" }},
		{"missing symbol", func(r *BarRequest) { r.Symbol = "" }},
		{"unknown timeframe", func(r *BarRequest) { r.Timeframe = "2h" }},
		{"zero start", func(r *BarRequest) { r.Start = time.Time{} }},
		{"start after end", func(r *BarRequest) { r.Start = r.End.Add(time.Hour) }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			req := testRequest()
			tc.modify(&req)
			suite.Error(req.Validate())
		})
	}
}

func (suite *BarRequestTestSuite) TestSingleInstantRangeIsValid() {
	req := testRequest()
	req.End = req.Start

	suite.NoError(req.Validate())
}

func (suite *BarRequestTestSuite) TestKeys() {
	req := testRequest()
	other := req
	other.End = other.End.Add(time.Hour)

	suite.Equal("binance|BTCUSDT|1h", req.SeriesKey())
	suite.Equal(req.SeriesKey(), other.SeriesKey())
	suite.NotEqual(req.Key(), other.Key())
	suite.Contains(req.String(), "2024-01-02T00:00:00Z")
}

func (suite *BarRequestTestSuite) TestRequestFromConfig() {
	cfg := types.BacktestConfig{
		Exchange:  "binance",
		Symbol:    "ETHUSDT",
		Timeframe: types.Timeframe1d,
		Start:     baseTime,
		End:       baseTime.Add(48 * time.Hour),
	}

	req := RequestFromConfig(cfg)
	suite.Equal("ETHUSDT", req.Symbol)
	suite.Equal(types.Timeframe1d, req.Timeframe)
	suite.Equal(cfg.End, req.End)
}

func (suite *BarRequestTestSuite) TestValidateSeries() {
	suite.NoError(ValidateSeries(nil))
	suite.NoError(ValidateSeries(hourlyBars(5, baseTime)))

	duplicate := hourlyBars(3, baseTime)
	duplicate[2].Time = duplicate[1].Time
	err := ValidateSeries(duplicate)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBarSeries))
	suite.Contains(err.Error(), "bar 2")

	descending := hourlyBars(3, baseTime)
	descending[0], descending[2] = descending[2], descending[0]
	suite.True(errors.HasCode(ValidateSeries(descending), errors.ErrCodeInvalidBarSeries))

	malformed := hourlyBars(3, baseTime)
	malformed[1].High = malformed[1].Low - 1
	suite.True(errors.HasCode(ValidateSeries(malformed), errors.ErrCodeInvalidBarSeries))

	negativeVolume := hourlyBars(2, baseTime)
	negativeVolume[0].Volume = -1
	suite.True(errors.HasCode(ValidateSeries(negativeVolume), errors.ErrCodeInvalidBarSeries))
}

func (suite *BarRequestTestSuite) TestInMemoryBarSource() {
	source := NewInMemoryBarSource()
	req := testRequest()
	source.Put(req, hourlyBars(48, baseTime.Add(-12*time.Hour)))

	bars, err := source.FetchBars(context.Background(), req)
	suite.Require().NoError(err)
	suite.Len(bars, 25)
	suite.Equal(req.Start, bars[0].Time)
	suite.Equal(req.End, bars[len(bars)-1].Time)

	bars[0].Close = -1
	again, err := source.FetchBars(context.Background(), req)
	suite.Require().NoError(err)
	suite.NotEqual(-1.0, again[0].Close)

	unknown := req
	unknown.Symbol = "DOGEUSDT"
	empty, err := source.FetchBars(context.Background(), unknown)
	suite.NoError(err)
	suite.Empty(empty)
}

func (suite *BarRequestTestSuite) TestInMemoryBarSourceSortsOnPut() {
	source := NewInMemoryBarSource()
	req := testRequest()
	bars := hourlyBars(3, baseTime)
	bars[0], bars[2] = bars[2], bars[0]
	source.Put(req, bars)

	fetched, err := source.FetchBars(context.Background(), req)
	suite.Require().NoError(err)
	suite.NoError(ValidateSeries(fetched))
}

func (suite *BarRequestTestSuite) TestInMemoryBarSourceHonorsCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInMemoryBarSource().FetchBars(ctx, testRequest())
	suite.ErrorIs(err, context.Canceled)
}
