package portfolio

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PortfolioTestSuite struct {
	suite.Suite
	start time.Time
}

func TestPortfolioSuite(t *testing.T) {
	suite.Run(t, new(PortfolioTestSuite))
}

func (suite *PortfolioTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func (suite *PortfolioTestSuite) TestLongRoundTripWithFees() {
	p := New(d(10000))

	suite.Require().NoError(p.Open(types.PositionSideLong, d(100), d(10), d(0.001), suite.start))
	suite.True(p.Cash().Equal(d(8999)))
	suite.Equal(types.PositionSideLong, p.Side())
	suite.True(p.Equity(d(100)).Equal(d(9999)))

	trade, err := p.Close(d(110), d(0.001), suite.start.Add(time.Hour), types.ExitReasonSignal)
	suite.Require().NoError(err)

	suite.True(p.Cash().Equal(d(10097.9)))
	suite.True(p.IsFlat())
	suite.InDelta(97.9, trade.PnL, 1e-9)
	suite.InDelta(2.1, trade.Fee, 1e-9)
	suite.Equal(100.0, trade.EntryPrice)
	suite.Equal(110.0, trade.ExitPrice)
	suite.Equal(types.ExitReasonSignal, trade.ExitReason)
	suite.Len(p.Trades(), 1)
}

func (suite *PortfolioTestSuite) TestShortRoundTrip() {
	p := New(d(10000))

	suite.Require().NoError(p.Open(types.PositionSideShort, d(100), d(10), decimal.Zero, suite.start))
	suite.True(p.Cash().Equal(d(9000)))
	suite.True(p.Equity(d(90)).Equal(d(10100)))

	view := p.View(d(90))
	suite.Equal(types.PositionSideShort, view.Side)
	suite.Equal(10100.0, view.Equity)

	trade, err := p.Close(d(90), decimal.Zero, suite.start.Add(time.Hour), types.ExitReasonSignal)
	suite.Require().NoError(err)
	suite.True(p.Cash().Equal(d(10100)))
	suite.InDelta(100, trade.PnL, 1e-9)
	suite.Equal(types.PositionSideShort, trade.Side)
}

func (suite *PortfolioTestSuite) TestOpenRejectsInsufficientCash() {
	p := New(d(1000))

	err := p.Open(types.PositionSideLong, d(100), d(10), d(0.01), suite.start)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientCash))
	suite.True(p.Cash().Equal(d(1000)))
	suite.True(p.IsFlat())
}

func (suite *PortfolioTestSuite) TestOpenRejectsSecondPosition() {
	p := New(d(1000))
	suite.Require().NoError(p.Open(types.PositionSideLong, d(10), d(1), decimal.Zero, suite.start))

	err := p.Open(types.PositionSideShort, d(10), d(1), decimal.Zero, suite.start)
	suite.True(errors.HasCode(err, errors.ErrCodePositionExists))
}

func (suite *PortfolioTestSuite) TestOpenRejectsNonPositiveInputs() {
	p := New(d(1000))

	suite.True(errors.HasCode(p.Open(types.PositionSideLong, d(0), d(1), decimal.Zero, suite.start), errors.ErrCodeInvalidSignal))
	suite.True(errors.HasCode(p.Open(types.PositionSideLong, d(10), d(-1), decimal.Zero, suite.start), errors.ErrCodeInvalidSignal))
	suite.True(errors.HasCode(p.Open(types.PositionSideFlat, d(10), d(1), decimal.Zero, suite.start), errors.ErrCodeInvalidSignal))
}

func (suite *PortfolioTestSuite) TestCloseWhenFlat() {
	p := New(d(1000))

	_, err := p.Close(d(10), decimal.Zero, suite.start, types.ExitReasonSignal)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}

func (suite *PortfolioTestSuite) TestMaxAffordableQuantityNeverOverspends() {
	p := New(d(10000))

	qty := p.MaxAffordableQuantity(d(100), d(0.001), decimal.NewFromInt(1))
	suite.True(qty.Equal(decimal.RequireFromString("99.9000999")))

	suite.Require().NoError(p.Open(types.PositionSideLong, d(100), qty, d(0.001), suite.start))
	suite.False(p.Cash().IsNegative())

	half := New(d(10000)).MaxAffordableQuantity(d(100), decimal.Zero, d(0.5))
	suite.True(half.Equal(d(50)))

	suite.True(New(d(0)).MaxAffordableQuantity(d(100), decimal.Zero, d(1)).IsZero())
}

func (suite *PortfolioTestSuite) TestShortCloseBeyondMarginIsRejected() {
	p := New(d(10000))
	qty := p.MaxAffordableQuantity(d(100), d(0.001), decimal.NewFromInt(1))
	suite.Require().NoError(p.Open(types.PositionSideShort, d(100), qty, d(0.001), suite.start))

	mcp, ok := p.MarginCallPrice(d(0.001))
	suite.True(ok)
	suite.InDelta(199.8002, mcp.InexactFloat64(), 1e-4)

	_, err := p.Close(d(250), d(0.001), suite.start, types.ExitReasonSignal)
	suite.True(errors.HasCode(err, errors.ErrCodeInsufficientCash))
	suite.Equal(types.PositionSideShort, p.Side())

	_, err = p.Close(mcp.Truncate(4), d(0.001), suite.start, types.ExitReasonMarginCall)
	suite.Require().NoError(err)
	suite.False(p.Cash().IsNegative())
}

func (suite *PortfolioTestSuite) TestMarginCallPriceOnlyForShorts() {
	p := New(d(1000))
	_, ok := p.MarginCallPrice(decimal.Zero)
	suite.False(ok)

	suite.Require().NoError(p.Open(types.PositionSideLong, d(10), d(1), decimal.Zero, suite.start))
	_, ok = p.MarginCallPrice(decimal.Zero)
	suite.False(ok)
}

func (suite *PortfolioTestSuite) TestEquityCurveDrawdown() {
	p := New(d(1000))
	suite.Require().NoError(p.Open(types.PositionSideLong, d(100), d(10), decimal.Zero, suite.start))

	first := p.MarkToMarket(d(100), suite.start)
	suite.Equal(1000.0, first.Equity)
	suite.Equal(0.0, first.Drawdown)
	suite.Equal(0.0, first.Cash)
	suite.Equal(1000.0, first.PositionValue)

	p.MarkToMarket(d(120), suite.start.Add(time.Hour))
	last := p.MarkToMarket(d(90), suite.start.Add(2*time.Hour))
	suite.Equal(900.0, last.Equity)
	suite.InDelta(0.25, last.Drawdown, 1e-12)

	suite.Len(p.EquityCurve(), 3)
}

func (suite *PortfolioTestSuite) TestRestateLastAfterLiquidation() {
	p := New(d(1000))
	suite.Require().NoError(p.Open(types.PositionSideLong, d(100), d(10), d(0.01), suite.start))
	p.MarkToMarket(d(100), suite.start)

	_, err := p.Close(d(100), d(0.01), suite.start, types.ExitReasonLiquidation)
	suite.Require().NoError(err)
	p.RestateLast(d(100))

	curve := p.EquityCurve()
	suite.Len(curve, 1)
	suite.InDelta(980, curve[0].Equity, 1e-9)
	suite.Equal(0.0, curve[0].PositionValue)
	suite.Equal(suite.start, curve[0].Time)
}

func (suite *PortfolioTestSuite) TestProtectionFollowsPosition() {
	p := New(d(1000))
	p.SetProtection(optional.Some(90.0), optional.Some(120.0))
	sl, _ := p.Protection()
	suite.True(sl.IsNone())

	suite.Require().NoError(p.Open(types.PositionSideLong, d(100), d(1), decimal.Zero, suite.start))
	p.SetProtection(optional.Some(90.0), optional.Some(120.0))
	sl, tp := p.Protection()
	suite.Equal(90.0, sl.Unwrap())
	suite.Equal(120.0, tp.Unwrap())

	_, err := p.Close(d(100), decimal.Zero, suite.start, types.ExitReasonSignal)
	suite.Require().NoError(err)
	sl, tp = p.Protection()
	suite.True(sl.IsNone())
	suite.True(tp.IsNone())
}
