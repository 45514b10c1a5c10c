package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter         ErrorCode = 100
	ErrCodeInvalidConfiguration     ErrorCode = 101
	ErrCodeInvalidOrder             ErrorCode = 102
	ErrCodeMismatchedOrderType      ErrorCode = 103
	ErrCodeNegTakeProfitAndStopLoss ErrorCode = 104
	ErrCodeNegZeroTrailingStop      ErrorCode = 105

	// Data/Resource errors (200-299)
	ErrCodeCandleDataEmpty       ErrorCode = 200
	ErrCodeCandleNotFound        ErrorCode = 201
	ErrCodeDataSourceUnavailable ErrorCode = 202
	ErrCodeQueryFailed           ErrorCode = 203

	// Strategy errors (400-499)
	ErrCodeIndicatorNotReady    ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402

	// Trading errors (500-599)
	ErrCodeInsufficientFunds ErrorCode = 500
	ErrCodeOrderNotFound     ErrorCode = 501
	ErrCodePositionNotFound  ErrorCode = 502

	// Wallet errors (600-699)
	ErrCodeNegZeroBalance ErrorCode = 600
	ErrCodeNegFreeBalance ErrorCode = 601

	// Result errors (700-799)
	ErrCodeResultWriteFailed ErrorCode = 700
)
