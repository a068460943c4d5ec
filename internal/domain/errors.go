package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by the list-query engine and the listing service.

var (
	// ErrInvalidArgument indicates a caller contract violation detected before any backend call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCancelled indicates the caller's context was cancelled or its deadline expired.
	ErrCancelled = errors.New("query cancelled")

	// ErrResourceNotFound indicates the requested list resource is not in the catalog.
	ErrResourceNotFound = errors.New("resource not found")
)

// QueryKind tells which of the two page queries produced an error.
type QueryKind string

const (
	QueryCount QueryKind = "count"
	QueryData  QueryKind = "data"
)

// QueryError is returned when the backend rejects the count or the data query.
type QueryError struct {
	Query    QueryKind
	Resource string
	Code     string // backend error code, empty when the driver exposes none
	Message  string
	Err      error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s query on %s failed (%s): %s", e.Query, e.Resource, e.Code, e.Message)
	}
	return fmt.Sprintf("%s query on %s failed: %s", e.Query, e.Resource, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// BackendError carries a driver-specific error code alongside the driver error.
// Backends wrap their driver errors with it so the engine can surface the code.
type BackendError struct {
	Code string
	Err  error
}

func (e *BackendError) Error() string {
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err with code. A nil err stays nil.
func NewBackendError(code string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Code: code, Err: err}
}

// invalidArgument wraps ErrInvalidArgument with a formatted reason.
func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
