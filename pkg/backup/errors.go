package backup

import (
	"errors"
	"fmt"

	"github.com/foliohq/folio/pkg/store"
)

// Error categories. Every error returned by this package is an [*Error]
// whose Kind is one of these, so callers can branch with errors.Is.
var (
	// ErrValidation: malformed input, wrong envelope type, incompatible
	// version or invalid payload. Always raised before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: the target owner does not exist. Raised before the wipe.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity: applying the snapshot would break an invariant. The
	// transaction is rolled back.
	ErrIntegrity = errors.New("integrity violation")

	// ErrResource: reading input, writing output or talking to storage
	// failed.
	ErrResource = errors.New("resource failure")
)

// Error describes a failed backup or restore operation.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func validationErrorf(op, format string, args ...any) *Error {
	return newError(ErrValidation, op, fmt.Errorf(format, args...))
}

func integrityErrorf(op, format string, args ...any) *Error {
	return newError(ErrIntegrity, op, fmt.Errorf(format, args...))
}

// classify maps storage and context errors onto the taxonomy. Errors that
// are already classified pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newError(ErrNotFound, op, err)
	case errors.Is(err, store.ErrConflict):
		return newError(ErrIntegrity, op, err)
	default:
		return newError(ErrResource, op, err)
	}
}

// KindOf returns the category of err, or nil when err is not a backup error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
