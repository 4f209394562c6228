package host

import (
	"log/slog"
)

// Translator renders localized messages.
type Translator interface {
	T(key string, args ...any) string
}

// Context bundles what every interceptor needs: the host application, a
// logger and a translator. It satisfies private.Diagnostics.
type Context struct {
	app        App
	logger     *slog.Logger
	translator Translator
}

// NewContext creates a context. A nil logger uses slog.Default; a nil
// translator returns keys untranslated.
func NewContext(app App, logger *slog.Logger, translator Translator) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		app:        app,
		logger:     logger,
		translator: translator,
	}
}

// App returns the host application.
func (c *Context) App() App {
	return c.app
}

// Logger returns the logger.
func (c *Context) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// T translates key.
func (c *Context) T(key string, args ...any) string {
	if c == nil || c.translator == nil {
		return key
	}
	return c.translator.T(key, args...)
}

// With returns a copy of c whose logger carries the given attributes.
func (c *Context) With(args ...any) *Context {
	clone := *c
	clone.logger = c.Logger().With(args...)
	return &clone
}
