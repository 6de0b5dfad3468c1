package contract

import (
	"errors"
	"fmt"
)

// Error is the error type surfaced by every dataprovider operation.
//
// Error carries structured fields for diagnostics: the failing address (if
// any) and the underlying cause (if any). Use the Is* helpers to classify
// wrapped errors.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the resource address the operation was issued against.
	Address string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes dataprovider errors.
type ErrorCode string

const (
	// ErrCodeUnknownResource indicates the address matches no registered route
	// and is not the whole-store address.
	ErrCodeUnknownResource ErrorCode = "UNKNOWN_RESOURCE"

	// ErrCodeUnsupportedOperation indicates a valid route that does not permit
	// the requested operation (e.g. insert on an item address).
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeMalformedPredicate indicates a predicate fragment whose
	// placeholders do not match its arguments, or is otherwise unsafe to compose.
	ErrCodeMalformedPredicate ErrorCode = "MALFORMED_PREDICATE"

	// ErrCodeConstraintViolation indicates a storage-enforced constraint failed.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeInvalidValues indicates a record that cannot be written.
	ErrCodeInvalidValues ErrorCode = "INVALID_VALUES"

	// ErrCodeStoreUnavailable indicates the storage handle is not ACTIVE.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeResetFailed indicates a whole-store reset did not complete.
	ErrCodeResetFailed ErrorCode = "RESET_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Address != "" {
		msg = fmt.Sprintf("%s (address=%s)", msg, e.Address)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error without an underlying cause.
func NewError(code ErrorCode, address, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Address: address}
}

// WrapError creates an Error wrapping cause.
func WrapError(code ErrorCode, address string, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Address: address, Err: cause}
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnknownResource reports whether err is an UNKNOWN_RESOURCE error.
func IsUnknownResource(err error) bool {
	return CodeOf(err) == ErrCodeUnknownResource
}

// IsUnsupportedOperation reports whether err is an UNSUPPORTED_OPERATION error.
func IsUnsupportedOperation(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedOperation
}

// IsMalformedPredicate reports whether err is a MALFORMED_PREDICATE error.
func IsMalformedPredicate(err error) bool {
	return CodeOf(err) == ErrCodeMalformedPredicate
}

// IsConstraintViolation reports whether err is a CONSTRAINT_VIOLATION error.
func IsConstraintViolation(err error) bool {
	return CodeOf(err) == ErrCodeConstraintViolation
}
