package core

import "errors"

var (
	ErrSampleNotFound = errors.New("sample not found")
	ErrDatabaseBusy   = errors.New("database busy")
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError is an error carrying the HTTP status it maps to
type APIError struct {
	Message string
	Code    int
	Cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError builds a 404 error
func NewNotFoundError(msg string) *APIError {
	return &APIError{Message: msg, Code: 404, Cause: ErrSampleNotFound}
}

// NewBadRequestError builds a 400 error
func NewBadRequestError(msg string) *APIError {
	return &APIError{Message: msg, Code: 400, Cause: ErrInvalidRequest}
}

// NewDatabaseBusyError builds a 409 error
func NewDatabaseBusyError(msg string, cause error) *APIError {
	return &APIError{Message: msg, Code: 409, Cause: errors.Join(ErrDatabaseBusy, cause)}
}
