package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter ErrorCode = 100
	ErrCodeInvalidConfig    ErrorCode = 101
	ErrCodeInvalidSignal    ErrorCode = 102
	ErrCodeInsufficientData ErrorCode = 106
	ErrCodeInvalidPeriod    ErrorCode = 108
	ErrCodeInvalidVersion   ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound               ErrorCode = 200
	ErrCodeDataSourceUnavailable      ErrorCode = 201
	ErrCodeQueryFailed                ErrorCode = 202
	ErrCodeInsufficientHistoricalData ErrorCode = 205
	ErrCodeInvalidBarSeries           ErrorCode = 206
	ErrCodeBarSourceFailed            ErrorCode = 207

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeNumericGuard           ErrorCode = 303

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError       ErrorCode = 401
	ErrCodeStrategyRuntimeError      ErrorCode = 402
	ErrCodeUnsupportedStrategy       ErrorCode = 403
	ErrCodeVersionMismatch           ErrorCode = 404
	ErrCodeStrategyErrorRateExceeded ErrorCode = 405

	// Portfolio errors (500-599)
	ErrCodePositionNotFound ErrorCode = 501
	ErrCodeInsufficientCash ErrorCode = 503
	ErrCodePositionExists   ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestCancelled ErrorCode = 609
	ErrCodeBacktestFailed    ErrorCode = 610
	ErrCodeEngineState       ErrorCode = 611
	ErrCodeResultWriteFailed ErrorCode = 612

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
