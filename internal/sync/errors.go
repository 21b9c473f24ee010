package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaUnavailable is raised when the required metadata types never appeared
	// within the readiness attempt budget. It is fatal to the connector.
	ErrSchemaUnavailable = errors.New("metadata types unavailable")

	// ErrEnumeration is raised when the external system could not be enumerated.
	// The cycle is aborted and retried on the next tick.
	ErrEnumeration = errors.New("enumeration failed")

	// ErrElementApply is raised when a single reconciliation action failed
	ErrElementApply = errors.New("element apply failed")

	// ErrTemplateMissing is raised when the configured template does not exist.
	// Creates degrade to CreateRaw.
	ErrTemplateMissing = errors.New("template missing")

	// ErrAborted is returned when a cycle was interrupted by cancellation
	ErrAborted = errors.New("aborted")

	// ErrIndex is raised when the catalog index could not be loaded from the store
	ErrIndex = errors.New("catalog index unavailable")
)

// ErrorKind classifies a cycle error
type ErrorKind string

const (
	// ErrorKindSchemaUnavailable means the readiness gate gave up
	ErrorKindSchemaUnavailable ErrorKind = "SchemaUnavailable"
	// ErrorKindEnumeration means the source could not be enumerated
	ErrorKindEnumeration ErrorKind = "EnumerationFailure"
	// ErrorKindIndex means existing elements could not be listed
	ErrorKindIndex ErrorKind = "IndexFailure"
	// ErrorKindAborted means the cycle was cancelled
	ErrorKindAborted ErrorKind = "Aborted"
)

// Error is a structured cycle error
type Error struct {
	Kind    ErrorKind
	Err     error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the connector must stop. Only SchemaUnavailable is fatal.
func (e *Error) Fatal() bool {
	return e != nil && e.Kind == ErrorKindSchemaUnavailable
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	}
}

// SchemaUnavailableError reports the types still missing after the last readiness check
type SchemaUnavailableError struct {
	Connector    string
	MissingTypes []string
	Attempts     int
}

func (e *SchemaUnavailableError) Error() string {
	return fmt.Sprintf("connector %s: metadata types %v still missing after %d checks",
		e.Connector, e.MissingTypes, e.Attempts)
}

func (*SchemaUnavailableError) Unwrap() error {
	return ErrSchemaUnavailable
}
