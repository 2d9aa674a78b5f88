package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.True(config.InitialCapital.IsZero())
	suite.True(config.FeeRate.IsZero())
	suite.False(config.AllowShort)
	suite.False(config.WaiveLiquidationFee)
	suite.Equal(types.DefaultMaxStrategyErrorRatio, config.MaxStrategyErrorRatio)
	suite.Equal(types.DefaultErrorRatioMinBars, config.ErrorRatioMinBars)
	suite.Equal(0, config.HistoryWindow)
}

func (suite *ConfigTestSuite) TestConfigFromBacktest() {
	cfg := types.DefaultBacktestConfig()
	cfg.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg.InitialCapital = decimal.NewFromInt(5000)
	cfg.FeeRate = decimal.RequireFromString("0.002")
	cfg.AllowShort = true
	cfg.WaiveLiquidationFee = true
	cfg.SlippageBps = 5
	cfg.HistoryWindow = 50

	config := ConfigFromBacktest(cfg)

	suite.True(config.InitialCapital.Equal(decimal.NewFromInt(5000)))
	suite.Equal("0.002", config.FeeRate.String())
	suite.True(config.AllowShort)
	suite.True(config.WaiveLiquidationFee)
	suite.Equal(5.0, config.SlippageBps)
	suite.Equal(50, config.HistoryWindow)
	suite.Equal(types.DefaultMaxStrategyErrorRatio, config.MaxStrategyErrorRatio)
}
