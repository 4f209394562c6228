package dispose

import (
	"errors"
	"fmt"
)

// ErrDisposerPanic is wrapped by a TeardownError when a disposer panicked.
var ErrDisposerPanic = errors.New("disposer panicked")

// TeardownError reports a disposer failure during a List run.
type TeardownError struct {
	// Index is the position of the disposer in the run's snapshot.
	Index int

	// Err is the disposer's error.
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown: disposer %d: %v", e.Index, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
