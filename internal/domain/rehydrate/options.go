package rehydrate

import (
	"time"

	"github.com/okian/ranked/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Default loop configuration.
const (
	DefaultInterval     = 120 * time.Second
	DefaultFetchTimeout = 30 * time.Second
	DefaultConcurrency  = 1
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithInterval sets the pause between two full passes.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithFetchTimeout bounds each provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.fetchTimeout = d
		}
	}
}

// WithConcurrency sets how many kinds are refreshed in parallel.
// Time ranges of one kind are always refreshed in order.
func WithConcurrency(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithClock overrides the time source used for pass reports.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loop) {
		if tp != nil {
			l.tracer = tp.Tracer("github.com/okian/ranked/internal/domain/rehydrate")
		}
	}
}
