package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTarget is returned when patching a nil target.
	ErrNilTarget = errors.New("patch target is nil")

	// ErrMethodNotFound is returned when the target has no method of the given name.
	ErrMethodNotFound = errors.New("method not found")

	// ErrMethodType is returned when the method exists with a different signature.
	ErrMethodType = errors.New("method has a different type")

	// ErrNilImplementation is returned when a factory produces a nil function.
	ErrNilImplementation = errors.New("factory returned a nil implementation")

	// ErrFactoryPanic is wrapped when a factory panicked.
	ErrFactoryPanic = errors.New("factory panicked")
)

// EstablishmentError reports a failure while installing a patch.
// Nothing is installed when it is returned.
type EstablishmentError struct {
	Method string
	Err    error
}

func (e *EstablishmentError) Error() string {
	return fmt.Sprintf("patching %q: %v", e.Method, e.Err)
}

func (e *EstablishmentError) Unwrap() error {
	return e.Err
}
