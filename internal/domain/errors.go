package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError so callers can tell an empty state
// from a failure worth retrying.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindTransient     ErrorKind = "transient"
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindBadRequest    ErrorKind = "bad_request"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindForbidden     ErrorKind = "forbidden"
	KindInternal      ErrorKind = "internal"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    int       `json:"-"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

// ErrTransient marks a failure of an otherwise valid request (network,
// processor outage, timeout). It must never be reported as NotFound.
func ErrTransient(msg string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Kind: KindTransient, Message: msg, Err: err}
}

func ErrConfiguration(msg string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Kind: KindConfiguration, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: msg}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: http.StatusForbidden, Kind: KindForbidden, Message: msg}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: KindBadRequest, Message: msg}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Kind: KindValidation, Message: msg}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Kind: KindInternal, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool      { return err != nil && KindOf(err) == KindNotFound }
func IsTransient(err error) bool     { return err != nil && KindOf(err) == KindTransient }
func IsConfiguration(err error) bool { return err != nil && KindOf(err) == KindConfiguration }
