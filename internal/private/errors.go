package private

import (
	"errors"
	"fmt"
)

var (
	// ErrSurfaceMissing is returned when a probed value is absent.
	ErrSurfaceMissing = errors.New("private surface missing")

	// ErrSurfaceChanged is returned when a probed value has an unexpected shape.
	ErrSurfaceChanged = errors.New("private surface changed")

	// ErrPanic is wrapped when guarded code panicked.
	ErrPanic = errors.New("panic in guarded access")
)

// SurfaceError reports a failed access to a private surface.
type SurfaceError struct {
	Surface string
	Err     error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("private surface %q: %v", e.Surface, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}
