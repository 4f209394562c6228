package private

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MessageKeyChanged is the translation key of the warning emitted when a
// guarded access fails.
const MessageKeyChanged = "errors.private-API-changed"

// Diagnostics is where guarded failures are reported.
type Diagnostics interface {
	Logger() *slog.Logger
	T(key string, args ...any) string
}

// Guard runs body and returns its result. If body returns an error or
// panics, the failure is reported through d and fallback(err) is returned
// instead. A nil fallback yields the zero value.
func Guard[T any](d Diagnostics, surface string, body func() (T, error), fallback func(error) T) T {
	result, err := run(surface, body)
	if err == nil {
		return result
	}
	return recoverWith(d, surface, err, fallback)
}

// GuardContext is the asynchronous variant of Guard. Body runs on its own
// goroutine; if ctx ends first, the context error is treated as the failure.
func GuardContext[T any](ctx context.Context, d Diagnostics, surface string, body func(context.Context) (T, error), fallback func(error) T) T {
	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := run(surface, func() (T, error) { return body(ctx) })
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil {
			return o.value
		}
		return recoverWith(d, surface, o.err, fallback)
	case <-ctx.Done():
		return recoverWith(d, surface, &SurfaceError{Surface: surface, Err: ctx.Err()}, fallback)
	}
}

// Do is Guard for bodies without a result. It reports whether body succeeded.
func Do(d Diagnostics, surface string, body func() error) bool {
	return Guard(d, surface, func() (bool, error) {
		if err := body(); err != nil {
			return false, err
		}
		return true, nil
	}, func(error) bool { return false })
}

func run[T any](surface string, body func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SurfaceError{Surface: surface, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	result, err = body()
	if err != nil {
		var se *SurfaceError
		if !errors.As(err, &se) {
			err = &SurfaceError{Surface: surface, Err: err}
		}
	}
	return result, err
}

func recoverWith[T any](d Diagnostics, surface string, err error, fallback func(error) T) T {
	report(d, surface, err)
	if fallback == nil {
		var zero T
		return zero
	}
	return fallback(err)
}

func report(d Diagnostics, surface string, err error) {
	logger := slog.Default()
	msg := MessageKeyChanged
	if d != nil {
		if l := d.Logger(); l != nil {
			logger = l
		}
		msg = d.T(MessageKeyChanged)
	}

	logger.Debug("private surface access failed", "surface", surface, "error", err)
	logger.Warn(msg, "key", MessageKeyChanged, "surface", surface)
}
