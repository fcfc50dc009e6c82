// Package interfaces defines the cross-cutting interfaces shared by accounts components
package interfaces

import (
	"context"
	"time"
)

// Logger defines the interface for logging implementations
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}

// Metrics defines the interface for metrics collection
type Metrics interface {
	// Counter increments a counter metric
	Counter(name string, value float64, labels map[string]string)

	// Gauge sets a gauge metric
	Gauge(name string, value float64, labels map[string]string)

	// Histogram records a histogram metric
	Histogram(name string, value float64, labels map[string]string)

	// Timer records timing metrics
	Timer(name string, duration float64, labels map[string]string)
}

// EventPublisher publishes account lifecycle events to an external bus
type EventPublisher interface {
	// Publish sends payload under the given event name
	Publish(ctx context.Context, event string, payload interface{}) error

	// Close releases the underlying connection
	Close() error
}

// RateLimiter decides whether a keyed caller may proceed
type RateLimiter interface {
	// Allow records one hit for key and reports whether it is within the limit.
	// The returned duration is how long the caller should wait when it is not.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// HealthChecker defines the interface for health checking
type HealthChecker interface {
	// HealthCheck pings the backing resource
	HealthCheck(ctx context.Context) error
}
