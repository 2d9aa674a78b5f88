package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBBarSourceTestSuite struct {
	suite.Suite
	source *DuckDBBarSource
}

func TestDuckDBBarSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBBarSourceTestSuite))
}

func (suite *DuckDBBarSourceTestSuite) SetupTest() {
	source, err := NewDuckDBBarSource("", nil)
	suite.Require().NoError(err)
	suite.source = source
}

func (suite *DuckDBBarSourceTestSuite) TearDownTest() {
	suite.NoError(suite.source.Close())
}

func (suite *DuckDBBarSourceTestSuite) TestInsertAndFetch() {
	ctx := context.Background()
	req := testRequest()

	suite.Require().NoError(suite.source.InsertBars(ctx, req, hourlyBars(48, baseTime.Add(-12*time.Hour))))

	other := req
	other.Symbol = "ETHUSDT"
	suite.Require().NoError(suite.source.InsertBars(ctx, other, hourlyBars(48, baseTime)))

	bars, err := suite.source.FetchBars(ctx, req)
	suite.Require().NoError(err)
	suite.Len(bars, 25)
	suite.True(bars[0].Time.Equal(req.Start))
	suite.True(bars[len(bars)-1].Time.Equal(req.End))
	suite.Equal(112.5, bars[0].Close)
	suite.NoError(ValidateSeries(bars))
}

func (suite *DuckDBBarSourceTestSuite) TestFetchOrdersByTime() {
	ctx := context.Background()
	req := testRequest()

	bars := hourlyBars(5, baseTime)
	reversed := make([]types.Bar, len(bars))
	for i, bar := range bars {
		reversed[len(bars)-1-i] = bar
	}

	suite.Require().NoError(suite.source.InsertBars(ctx, req, reversed))

	fetched, err := suite.source.FetchBars(ctx, req)
	suite.Require().NoError(err)
	suite.Len(fetched, 5)
	suite.NoError(ValidateSeries(fetched))
}

func (suite *DuckDBBarSourceTestSuite) TestEmptyResultIsNotAnError() {
	suite.Require().NoError(suite.source.InsertBars(context.Background(), testRequest(), nil))

	bars, err := suite.source.FetchBars(context.Background(), testRequest())
	suite.NoError(err)
	suite.Empty(bars)
}

func (suite *DuckDBBarSourceTestSuite) TestFetchWithoutRelationFails() {
	_, err := suite.source.FetchBars(context.Background(), testRequest())
	suite.True(errors.HasCode(err, errors.ErrCodeBarSourceFailed))
}

func (suite *DuckDBBarSourceTestSuite) TestInitializeFromParquet() {
	path := filepath.Join(suite.T().TempDir(), "bars.parquet")
	suite.Require().NoError(writeParquet(path, testRequest(), hourlyBars(30, baseTime)))

	suite.Require().NoError(suite.source.Initialize(path))

	bars, err := suite.source.FetchBars(context.Background(), testRequest())
	suite.Require().NoError(err)
	suite.Len(bars, 25)
	suite.Equal(100.0, bars[0].Open)
}

func (suite *DuckDBBarSourceTestSuite) TestInitializeMissingFile() {
	err := suite.source.Initialize(filepath.Join(suite.T().TempDir(), "missing.parquet"))
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func writeParquet(path string, req BarRequest, bars []types.Bar) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE bars (exchange TEXT, symbol TEXT, timeframe TEXT, time TIMESTAMP,
		open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, volume DOUBLE)`); err != nil {
		return err
	}

	for _, bar := range bars {
		if _, err := db.Exec(`INSERT INTO bars VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.Exchange, req.Symbol, string(req.Timeframe), bar.Time,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return err
		}
	}

	_, err = db.Exec(fmt.Sprintf(`COPY bars TO '%s' (FORMAT PARQUET)`, path))

	return err
}
