package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is both the header and the echo context key for the request id
const RequestIDKey = "X-Request-ID"

const echoLoggerKey = "request_logger"

type stdLoggerKey struct{}

// FromContext returns the logger Middleware attached to the request. Outside
// the middleware it derives one from the global logger and the request id.
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(echoLoggerKey).(*zap.Logger); ok {
		return l
	}
	id, _ := c.Get(RequestIDKey).(string)
	if id == "" {
		id = c.Request().Header.Get(RequestIDKey)
	}
	if id == "" {
		id = "unknown"
	}
	return GetLogger().With(zap.String("request_id", id))
}

// SetContextLogger attaches l as the request-scoped logger
func SetContextLogger(c echo.Context, l *zap.Logger) {
	c.Set(echoLoggerKey, l)
}

// WithContext carries l on ctx for work that outlives the echo context,
// such as media cleanup.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, stdLoggerKey{}, l)
}

// FromStdContext returns the logger stored by WithContext, or the global one.
func FromStdContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(stdLoggerKey{}).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}
