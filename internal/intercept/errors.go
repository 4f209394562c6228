package intercept

import "errors"

var (
	// ErrNilContext is returned when no host context is supplied.
	ErrNilContext = errors.New("nil host context")

	// ErrNilPatcher is returned when no patcher is supplied.
	ErrNilPatcher = errors.New("nil patcher")

	// ErrNilWorkspace is returned when no workspace is supplied.
	ErrNilWorkspace = errors.New("nil workspace")
)
