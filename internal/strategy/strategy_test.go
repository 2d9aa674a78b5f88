package strategy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StrategyTestSuite struct {
	suite.Suite
	registry indicator.IndicatorRegistry
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.registry = indicator.NewDefaultRegistry()
}

func bars(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Bar, len(closes))

	for i, c := range closes {
		out[i] = types.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}

	return out
}

func (suite *StrategyTestSuite) values(s Strategy, history []types.Bar) indicator.Values {
	values, err := indicator.Compute(suite.registry, s.DeclareDataRequirements(), history)
	suite.Require().NoError(err)

	return values
}

var flat = types.PortfolioView{Side: types.PositionSideFlat, Cash: 100, Equity: 100}

func (suite *StrategyTestSuite) TestFactoryBuildsEveryType() {
	rng := rand.New(rand.NewSource(1))

	for _, t := range types.AllStrategyTypes {
		s, err := New(types.StrategyConfig{Type: types.StrategyType(t.(string))}, rng)
		suite.NoError(err, t)
		suite.Equal(t, s.Name())
	}
}

func (suite *StrategyTestSuite) TestFactoryRejects() {
	_, err := New(types.StrategyConfig{Type: "grid"}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedStrategy))

	_, err = New(types.StrategyConfig{Type: types.StrategyTypeSMACrossover, FastPeriod: 30, SlowPeriod: 10}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	_, err = New(types.StrategyConfig{Type: types.StrategyTypeRandomEntry}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	_, err = New(types.StrategyConfig{Type: types.StrategyTypeMomentum, StopLossPct: 1}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	_, err = New(types.StrategyConfig{Type: types.StrategyTypeRSIReversion, LowerThreshold: 80, UpperThreshold: 20}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}

func (suite *StrategyTestSuite) TestMomentumFollowsCloseDirection() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeMomentum, Quantity: 1}, nil)
	suite.Require().NoError(err)

	signal, err := s.OnBar(bars(10), nil, flat)
	suite.NoError(err)
	suite.True(signal.IsNone())

	signal, err = s.OnBar(bars(10, 11), nil, flat)
	suite.NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SignalTypeBuy, signal.Unwrap().Type)
	suite.Equal(1.0, signal.Unwrap().Quantity.Unwrap())

	long := types.PortfolioView{Side: types.PositionSideLong, Quantity: 1, EntryPrice: 11}

	signal, err = s.OnBar(bars(10, 11, 12), nil, long)
	suite.NoError(err)
	suite.True(signal.IsNone(), "already long on a rise")

	signal, err = s.OnBar(bars(10, 11, 9), nil, long)
	suite.NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SignalTypeSell, signal.Unwrap().Type)

	signal, err = s.OnBar(bars(10, 10), nil, flat)
	suite.NoError(err)
	suite.True(signal.IsNone())
}

func (suite *StrategyTestSuite) TestSizingDefaultsToFullFraction() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeMomentum}, nil)
	suite.Require().NoError(err)

	signal, err := s.OnBar(bars(10, 11), nil, flat)
	suite.NoError(err)
	suite.True(signal.Unwrap().Quantity.IsNone())
	suite.Equal(1.0, signal.Unwrap().Fraction.Unwrap())
}

func (suite *StrategyTestSuite) TestSizingAttachesProtectiveLevels() {
	sizing, err := newSizing(types.StrategyConfig{Quantity: 2, StopLossPct: 0.1, TakeProfitPct: 0.2})
	suite.Require().NoError(err)

	long := sizing.Bullish(flat, 100, "entry").Unwrap()
	suite.InDelta(90.0, long.StopLoss.Unwrap(), 1e-9)
	suite.InDelta(120.0, long.TakeProfit.Unwrap(), 1e-9)

	short := sizing.Bearish(flat, 100, "entry").Unwrap()
	suite.InDelta(110.0, short.StopLoss.Unwrap(), 1e-9)
	suite.InDelta(80.0, short.TakeProfit.Unwrap(), 1e-9)

	exit := sizing.Bullish(types.PortfolioView{Side: types.PositionSideShort, Quantity: 1}, 100, "cover").Unwrap()
	suite.Equal(types.SignalTypeBuy, exit.Type)
	suite.True(exit.StopLoss.IsNone())
}

func (suite *StrategyTestSuite) TestSMACrossover() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeSMACrossover, FastPeriod: 2, SlowPeriod: 3, Quantity: 1}, nil)
	suite.Require().NoError(err)

	history := bars(5, 4, 3, 2, 6)
	signal, err := s.OnBar(history, suite.values(s, history), flat)
	suite.NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SignalTypeBuy, signal.Unwrap().Type)

	warmup := bars(5, 4, 3)
	signal, err = s.OnBar(warmup, suite.values(s, warmup), flat)
	suite.NoError(err)
	suite.True(signal.IsNone())
}

func (suite *StrategyTestSuite) TestRSIReversion() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeRSIReversion, Period: 3, Quantity: 1}, nil)
	suite.Require().NoError(err)

	falling := bars(10, 9, 8, 7, 6)
	signal, err := s.OnBar(falling, suite.values(s, falling), flat)
	suite.NoError(err)
	suite.Equal(types.SignalTypeBuy, signal.Unwrap().Type)

	rising := bars(6, 7, 8, 9, 10)
	long := types.PortfolioView{Side: types.PositionSideLong, Quantity: 1}
	signal, err = s.OnBar(rising, suite.values(s, rising), long)
	suite.NoError(err)
	suite.Equal(types.SignalTypeSell, signal.Unwrap().Type)
}

func (suite *StrategyTestSuite) TestBollingerReversionExitsAtMiddle() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeBollingerReversion, Period: 4, StdDev: 1.5, Quantity: 1}, nil)
	suite.Require().NoError(err)

	dip := bars(10, 10, 10, 10, 10, 10, 10, 4)
	signal, err := s.OnBar(dip, suite.values(s, dip), flat)
	suite.NoError(err)
	suite.Equal(types.SignalTypeBuy, signal.Unwrap().Type)

	recovered := bars(10, 10, 10, 10)
	long := types.PortfolioView{Side: types.PositionSideLong, Quantity: 1}
	signal, err = s.OnBar(recovered, suite.values(s, recovered), long)
	suite.NoError(err)
	suite.Equal(types.SignalTypeSell, signal.Unwrap().Type)
}

func (suite *StrategyTestSuite) TestMACDCrossoverWaitsForWarmup() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeMACDCrossover, FastPeriod: 2, SlowPeriod: 3, SignalPeriod: 2}, nil)
	suite.Require().NoError(err)

	history := bars(1, 2, 3, 4)
	signal, err := s.OnBar(history, suite.values(s, history), flat)
	suite.NoError(err)
	suite.True(signal.IsNone())
}

func (suite *StrategyTestSuite) TestMACDCrossoverDetectsBullishCross() {
	s, err := New(types.StrategyConfig{Type: types.StrategyTypeMACDCrossover, FastPeriod: 2, SlowPeriod: 3, SignalPeriod: 2, Quantity: 1}, nil)
	suite.Require().NoError(err)

	// an accelerating decline followed by a sharp rally flips the histogram positive
	history := bars(20, 19, 18, 16, 13, 9, 4, 20)
	signal, err := s.OnBar(history, suite.values(s, history), flat)
	suite.NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SignalTypeBuy, signal.Unwrap().Type)
}

func (suite *StrategyTestSuite) TestRandomEntryIsReproducibleForSeed() {
	draws := func(seed int64) []bool {
		s, err := New(types.StrategyConfig{Type: types.StrategyTypeRandomEntry, EntryProbability: 0.5, Quantity: 1}, rand.New(rand.NewSource(seed)))
		suite.Require().NoError(err)

		out := make([]bool, 0, 50)
		for i := 0; i < 50; i++ {
			signal, err := s.OnBar(bars(10), nil, flat)
			suite.Require().NoError(err)
			out = append(out, signal.IsSome())
		}

		return out
	}

	suite.Equal(draws(42), draws(42))
	suite.Contains(draws(42), true)
	suite.Contains(draws(42), false)
}
