// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid orders, exit rules and configuration
//   - Data/Resource errors (200-299): Empty candle data, data source and query failures
//   - Strategy errors (400-499): Strategy callback failures
//   - Trading errors (500-599): Funds, order and position lookups
//   - Wallet errors (600-699): Balance sanity failures
//   - Result errors (700-799): Persisting backtest results
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeOrderNotFound, "order not found")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", id)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInsufficientFunds) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientFundsError carries the amounts involved in a rejected reservation.
type InsufficientFundsError struct {
	Required  float64 // Amount the operation needed
	Available float64 // Free balance at the time of the request
}

// NewInsufficientFunds creates an ErrCodeInsufficientFunds error with an InsufficientFundsError cause.
func NewInsufficientFunds(required, available float64) *Error {
	return Wrap(ErrCodeInsufficientFunds, "insufficient funds", &InsufficientFundsError{
		Required:  required,
		Available: available,
	})
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("required %v, available %v", e.Required, e.Available)
}

// IsInsufficientFunds checks if an error carries an InsufficientFundsError.
// It uses errors.As to check the error chain.
func IsInsufficientFunds(err error) bool {
	var fundsErr *InsufficientFundsError

	return errors.As(err, &fundsErr)
}
