package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInterval      ErrorCode = 102
	ErrCodeUnsortedTimeframes   ErrorCode = 103
	ErrCodeUnsortedCandlesticks ErrorCode = 104
	ErrCodeDuplicateSymbol      ErrorCode = 105
	ErrCodeDuplicateInterval    ErrorCode = 106

	// Split errors (200-299)
	ErrCodeEmptyTimeframes   ErrorCode = 200
	ErrCodeNoWarmupTimeframe ErrorCode = 201
	ErrCodeEmptyCandlesticks ErrorCode = 202
	ErrCodeNoSymbolData      ErrorCode = 203

	// Engine errors (300-399)
	ErrCodeEngineNotInitialized ErrorCode = 300
	ErrCodeEngineAlreadyRunning ErrorCode = 301
	ErrCodeCallbackFailed       ErrorCode = 302
	ErrCodeNoParts              ErrorCode = 303

	// Market data errors (400-499)
	ErrCodeMarketDataFetchFailed ErrorCode = 400
	ErrCodeMarketDataParseFailed ErrorCode = 401
	ErrCodeMarketDataWriteFailed ErrorCode = 402
)
