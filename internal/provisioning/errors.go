package provisioning

import (
	"errors"
	"fmt"
)

// PreconditionError reports a condition that makes a workflow impossible.
// It is always returned before any provider state is changed.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return e.Err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Precondition wraps err as a PreconditionError.
func Precondition(err error) error {
	if err == nil {
		return nil
	}
	return &PreconditionError{Err: err}
}

// Preconditionf formats a PreconditionError.
func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Err: fmt.Errorf(format, args...)}
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
