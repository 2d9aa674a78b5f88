package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInvalidParameter, "invalid parameter: %s", "test")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter: test", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("data not found", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeDataNotFound, cause, "data not found for symbol: %s", "BTCUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("data not found for symbol: BTCUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal(ErrCodeInvalidParameter, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeDataNotFound, "data not found")
	err := Wrap(ErrCodeIndicatorNotFound, "indicator not found", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeIndicatorNotFound, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromNonArgoError() {
	err := errors.New("standard error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.True(HasCode(err, ErrCodeInvalidParameter))
	suite.False(HasCode(err, ErrCodeDataNotFound))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	var argoErr *Error
	suite.True(As(err, &argoErr))
	suite.Equal(ErrCodeInvalidParameter, argoErr.Code)
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	// Verify some key error codes have expected values
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeDataNotFound)
	suite.Equal(ErrorCode(300), ErrCodeIndicatorNotFound)
	suite.Equal(ErrorCode(101), ErrCodeInvalidConfig)
	suite.Equal(ErrorCode(205), ErrCodeInsufficientHistoricalData)
	suite.Equal(ErrorCode(402), ErrCodeStrategyRuntimeError)
	suite.Equal(ErrorCode(503), ErrCodeInsufficientCash)
	suite.Equal(ErrorCode(609), ErrCodeBacktestCancelled)
	suite.Equal(ErrorCode(800), ErrCodeCallbackFailed)
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := Wrap(ErrCodeInsufficientData, "not enough data for RSI",
		&InsufficientDataError{Indicator: "RSI", Required: 15, Actual: 10})

	var detail *InsufficientDataError
	suite.Require().True(As(err, &detail))
	suite.Equal(15, detail.Required)
	suite.Equal(10, detail.Actual)
	suite.Equal("RSI requires 15 values, got 10", detail.Error())

	suite.False(As(errors.New("standard error"), &detail))
	suite.False(As(New(ErrCodeInvalidParameter, "invalid parameter"), &detail))
}

func (suite *ErrorTestSuite) TestInsufficientHistoricalDataErrorMessage() {
	detail := &InsufficientHistoricalDataError{
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Timeframe: "1d",
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Required:  20,
		Actual:    3,
	}

	msg := detail.Error()
	suite.Contains(msg, "binance BTCUSDT 1d")
	suite.Contains(msg, "2024-01-01T00:00:00Z")
	suite.Contains(msg, "2024-01-03T00:00:00Z")
	suite.Contains(msg, "got 3 bars")
	suite.Contains(msg, "at least 20 bars")
}

func (suite *ErrorTestSuite) TestInsufficientHistoricalDataErrorReachableThroughWrap() {
	detail := &InsufficientHistoricalDataError{Exchange: "binance", Symbol: "BTCUSDT", Timeframe: "1h", Required: 20, Actual: 0}
	err := Wrap(ErrCodeInsufficientHistoricalData, "not enough bars", detail)

	suite.True(HasCode(err, ErrCodeInsufficientHistoricalData))

	var target *InsufficientHistoricalDataError
	suite.True(As(err, &target))
	suite.Equal(20, target.Required)
	suite.Equal(0, target.Actual)
}
