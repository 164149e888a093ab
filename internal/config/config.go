// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers file and environment values on top of the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider backends.
const (
	ProviderSQLite = "sqlite"
	ProviderHTTP   = "http"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RehydrateInterval is the pause between two full refresh passes.
	RehydrateInterval time.Duration `koanf:"rehydrate_interval"`

	// FetchTimeout bounds a single provider call.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// RehydrateConcurrency is how many attribution kinds refresh in parallel.
	RehydrateConcurrency int `koanf:"rehydrate_concurrency"`

	// DefaultPageLimit and MaxPageLimit govern GET /ranking?limit.
	DefaultPageLimit int `koanf:"default_page_limit"`
	MaxPageLimit     int `koanf:"max_page_limit"`

	// Provider selects the attribution backend: sqlite or http.
	Provider string `koanf:"provider"`

	// SQLitePath is the database file of the sqlite provider.
	SQLitePath string `koanf:"sqlite_path"`

	// RemoteBaseURL, RemoteTimeout and RemoteToken configure the http provider.
	RemoteBaseURL string        `koanf:"remote_base_url"`
	RemoteTimeout time.Duration `koanf:"remote_timeout"`
	RemoteToken   string        `koanf:"remote_token"`

	// CORSOrigins lists allowed browser origins; empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `koanf:"otel_endpoint"`

	// ServiceName is reported to the tracing backend.
	ServiceName string `koanf:"service_name"`

	// MetricsEnabled toggles recording; /metrics is served either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsFetchBuckets overrides the provider fetch histogram, in seconds.
	MetricsFetchBuckets []float64 `koanf:"metrics_fetch_buckets"`
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // compiled once

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ShutdownTimeout:      10 * time.Second,
		RehydrateInterval:    120 * time.Second,
		FetchTimeout:         30 * time.Second,
		RehydrateConcurrency: 1,
		DefaultPageLimit:     20,
		MaxPageLimit:         1000,
		Provider:             ProviderSQLite,
		SQLitePath:           "ranked.db",
		RemoteTimeout:        10 * time.Second,
		ServiceName:          "ranked",
		MetricsEnabled:       true,
		MetricsNamespace:     "ranked",
		MetricsSubsystem:     "cache",
	}
}

// Validate reports every invalid field, joined, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	if c.RehydrateInterval <= 0 {
		errs = append(errs, errors.New("rehydrate_interval must be positive"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	}
	if c.RehydrateConcurrency <= 0 {
		errs = append(errs, errors.New("rehydrate_concurrency must be positive"))
	}
	if c.DefaultPageLimit <= 0 || c.MaxPageLimit <= 0 {
		errs = append(errs, errors.New("page limits must be positive"))
	} else if c.DefaultPageLimit > c.MaxPageLimit {
		errs = append(errs, errors.New("default_page_limit must not exceed max_page_limit"))
	}
	switch c.Provider {
	case ProviderSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite_path must not be empty"))
		}
	case ProviderHTTP:
		if strings.TrimSpace(c.RemoteBaseURL) == "" {
			errs = append(errs, errors.New("remote_base_url must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	errs = append(errs, c.validateMetrics()...)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c *Config) validateMetrics() []error {
	var errs []error
	if c.MetricsNamespace != "" && !metricName.MatchString(c.MetricsNamespace) {
		errs = append(errs, fmt.Errorf("metrics_namespace %q is not a valid metric name", c.MetricsNamespace))
	}
	if c.MetricsSubsystem != "" && !metricName.MatchString(c.MetricsSubsystem) {
		errs = append(errs, fmt.Errorf("metrics_subsystem %q is not a valid metric name", c.MetricsSubsystem))
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			errs = append(errs, fmt.Errorf("metrics_labels: invalid label name %q", name))
		}
	}
	for i := 1; i < len(c.MetricsFetchBuckets); i++ {
		if c.MetricsFetchBuckets[i] <= c.MetricsFetchBuckets[i-1] {
			errs = append(errs, errors.New("metrics_fetch_buckets must be strictly increasing"))
			break
		}
	}
	return errs
}
