// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidQuantity    = errors.New("shares must be a positive number")
	ErrInvalidPrice       = errors.New("price must be a positive number")
	ErrInvalidSymbol      = errors.New("symbol is required")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrPositionNotFound   = errors.New("no position")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrCorruptSnapshot    = errors.New("corrupt portfolio snapshot")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataNotFound       = errors.New("data not found")
	ErrDatabaseError      = errors.New("database error")
	ErrReadOnlyMode       = errors.New("operation blocked: read-only mode enabled")
	ErrInputValidation    = errors.New("input validation failed")
)

// TradeError describes a rejected paper trade.
type TradeError struct {
	Symbol string
	Action string
	Reason string
	Err    error
}

func (e *TradeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Action, e.Symbol, e.Err, e.Reason)
	}
	return fmt.Sprintf("%s %s: %v", e.Action, e.Symbol, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError creates a new TradeError.
func NewTradeError(symbol, action, reason string, err error) *TradeError {
	return &TradeError{
		Symbol: symbol,
		Action: action,
		Reason: reason,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// SnapshotError describes why a persisted portfolio could not be loaded.
type SnapshotError struct {
	Field   string
	Message string
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrCorruptSnapshot, e.Field, e.Message)
}

func (e *SnapshotError) Unwrap() error {
	return ErrCorruptSnapshot
}

// NewSnapshotError creates a new SnapshotError.
func NewSnapshotError(field, format string, args ...interface{}) *SnapshotError {
	return &SnapshotError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Key      string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Key, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, key, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Key:      key,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
