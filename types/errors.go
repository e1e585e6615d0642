package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the failure kind of an SDKError. Every failure that
// leaves this SDK carries exactly one of these codes.
type ErrorCode string

const (
	ErrInvalidAddress         ErrorCode = "INVALID_ADDRESS"
	ErrInvalidArgument        ErrorCode = "INVALID_ARGUMENT"
	ErrInvalidEventHandle     ErrorCode = "INVALID_EVENT_HANDLE"
	ErrWalletNotFound         ErrorCode = "WALLET_NOT_FOUND"
	ErrWalletConnectionFailed ErrorCode = "WALLET_CONNECTION_FAILED"
	ErrWalletNotConnected     ErrorCode = "WALLET_NOT_CONNECTED"
	ErrTransactionTimeout     ErrorCode = "TRANSACTION_TIMEOUT"
	ErrViewFunctionFailed     ErrorCode = "VIEW_FUNCTION_FAILED"
	ErrNetwork                ErrorCode = "NETWORK_ERROR"
	ErrCodegenFailed          ErrorCode = "CODEGEN_FAILED"
)

// SDKError is the single structured error shape used at every boundary.
// External failures (node API, wallet provider) are never passed through raw,
// they are lifted into an SDKError with WrapError.
type SDKError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}

	cause error
}

func (e *SDKError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SDKError) Unwrap() error {
	return e.cause
}

// WithDetail attaches a named detail and returns the error for chaining.
func (e *SDKError) WithDetail(key string, value interface{}) *SDKError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a previously attached detail, nil if absent.
func (e *SDKError) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

func NewError(code ErrorCode, format string, args ...interface{}) *SDKError {
	return &SDKError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError lifts an arbitrary failure into an SDKError, preserving the
// original as the cause. Wrapping a nil error returns nil.
func WrapError(err error, code ErrorCode, format string, args ...interface{}) *SDKError {
	if err == nil {
		return nil
	}
	return &SDKError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// CodeOf extracts the ErrorCode from err, walking the unwrap chain. Returns
// the empty code when err carries no SDKError.
func CodeOf(err error) ErrorCode {
	var se *SDKError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
