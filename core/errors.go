package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ErrPermissionDenied is returned when an authenticated principal attempts an
// operation their role does not allow.
var ErrPermissionDenied = errors.New("permission denied")

// storeUnavailable signals that the persistence layer could not complete a
// request. Callers must treat it as retriable: the triggering action's state
// has not advanced.
type storeUnavailable struct {
	op  string
	err error
}

func NewStoreUnavailableError(op string, err error) error {
	return &storeUnavailable{op: op, err: err}
}

func (s storeUnavailable) Error() string {
	if s.err == nil {
		return s.op + ": store unavailable"
	}
	return s.op + ": " + s.err.Error()
}

func IsStoreUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*storeUnavailable)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
