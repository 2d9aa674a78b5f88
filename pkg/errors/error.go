// Package errors carries coded errors across every fallible boundary of a
// backtest run.
//
// Codes are grouped by range:
//   - 1-99: unknown and general
//   - 100-199: validation of configs, signals and periods
//   - 200-299: bar sources and missing history
//   - 300-399: indicators and numeric guards
//   - 400-499: strategies
//   - 500-599: portfolio state
//   - 600-699: engine state, cancellation and run outcome
//   - 800-899: callbacks
//
// A typical boundary wraps the lower error and tests for the code later:
//
//	err := errors.Wrap(errors.ErrCodeBarSourceFailed, "failed to fetch bars", cause)
//	if errors.HasCode(err, errors.ErrCodeBarSourceFailed) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error is a message tagged with an ErrorCode and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags cause with code. The cause stays reachable through errors.As.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// As is errors.As, so callers need a single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain, or
// ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError reports an indicator asked to compute over fewer
// values than its period needs.
type InsufficientDataError struct {
	Indicator string
	Required  int
	Actual    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s requires %d values, got %d", e.Indicator, e.Required, e.Actual)
}

// InsufficientHistoricalDataError describes a bar request that returned fewer
// bars than a run needs. It is carried as the Cause of an
// ErrCodeInsufficientHistoricalData error.
type InsufficientHistoricalDataError struct {
	Exchange  string
	Symbol    string
	Timeframe string
	Start     time.Time
	End       time.Time
	Required  int
	Actual    int
}

func (e *InsufficientHistoricalDataError) Error() string {
	return fmt.Sprintf(
		"insufficient historical data for %s %s %s between %s and %s: got %d bars, requires at least %d bars",
		e.Exchange, e.Symbol, e.Timeframe,
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339),
		e.Actual, e.Required,
	)
}
