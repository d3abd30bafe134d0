package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their template.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Loan lifecycle errors.
var (
	ErrBookUnavailable       = New("BOOK_UNAVAILABLE", http.StatusConflict, "book is not available")
	ErrLoanLimitExceeded     = New("LOAN_LIMIT_EXCEEDED", http.StatusConflict, "student reached the active loan limit")
	ErrLoanNotActive         = New("LOAN_NOT_ACTIVE", http.StatusConflict, "loan is not active")
	ErrInvalidParameter      = New("INVALID_PARAMETER", http.StatusBadRequest, "invalid parameter")
	ErrAmbiguousHistoryMatch = New("AMBIGUOUS_HISTORY_MATCH", http.StatusInternalServerError, "ambiguous historical record match")
	ErrHistoryOutOfSync      = New("HISTORY_OUT_OF_SYNC", http.StatusInternalServerError, "no open historical record for loan")
	ErrStorageFailure        = New("STORAGE_FAILURE", http.StatusServiceUnavailable, "storage failure")
	ErrSanctionClosed        = New("SANCTION_CLOSED", http.StatusConflict, "sanction already lifted")
)

// Generic errors.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// IsDomain reports whether err already carries a typed code.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Storage wraps an infrastructure error as a StorageFailure.
func Storage(err error, message string) *Error {
	if message == "" {
		message = ErrStorageFailure.Message
	}
	return Wrap(err, ErrStorageFailure.Code, ErrStorageFailure.Status, message)
}
