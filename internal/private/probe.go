package private

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Probe checks that v provides the capability C.
func Probe[C any](v any, surface string) (C, error) {
	var zero C
	if isAbsent(v) {
		return zero, &SurfaceError{Surface: surface, Err: ErrSurfaceMissing}
	}

	c, ok := v.(C)
	if !ok {
		return zero, &SurfaceError{
			Surface: surface,
			Err:     fmt.Errorf("%w: %T does not provide %s", ErrSurfaceChanged, v, typeName[C]()),
		}
	}
	return c, nil
}

// Field describes an optional value exposed by a zero-argument method.
type Field[T any] struct {
	// Method is the name of the getter method.
	Method string

	// Default is used when the getter is missing or has another shape.
	Default T
}

// Resolve calls the getter on v. On failure it returns Default together with
// a *SurfaceError.
func (f Field[T]) Resolve(v any) (T, error) {
	if isAbsent(v) {
		return f.Default, &SurfaceError{Surface: f.Method, Err: ErrSurfaceMissing}
	}

	m := reflect.ValueOf(v).MethodByName(f.Method)
	if !m.IsValid() {
		return f.Default, &SurfaceError{
			Surface: f.Method,
			Err:     fmt.Errorf("%w: %T has no method %s", ErrSurfaceChanged, v, f.Method),
		}
	}

	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 {
		return f.Default, &SurfaceError{
			Surface: f.Method,
			Err:     fmt.Errorf("%w: %s has signature %s", ErrSurfaceChanged, f.Method, mt),
		}
	}

	out := m.Call(nil)
	val, ok := out[0].Interface().(T)
	if !ok {
		return f.Default, &SurfaceError{
			Surface: f.Method,
			Err:     fmt.Errorf("%w: %s returns %s, want %s", ErrSurfaceChanged, f.Method, mt.Out(0), typeName[T]()),
		}
	}
	return val, nil
}

// Get is Resolve that logs failures at debug level through d. A missing
// optional field is expected on some host versions, so it is not a warning.
func (f Field[T]) Get(d Diagnostics, v any) T {
	val, err := f.Resolve(v)
	if err != nil {
		logger := slog.Default()
		if d != nil && d.Logger() != nil {
			logger = d.Logger()
		}
		logger.Debug("optional private field unavailable", "field", f.Method, "default", f.Default, "error", err)
	}
	return val
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
