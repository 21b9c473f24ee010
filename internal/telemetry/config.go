// Package telemetry provides OpenTelemetry tracing and metrics for the catalog
// sync service, exported over OTLP/HTTP and optionally scraped by Prometheus.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName identifies the service when serviceName is not configured
	DefaultServiceName = "thv-catalog-sync"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio used when none is configured
	DefaultSampling = 0.05

	// DefaultExportInterval is how often metrics are pushed to the collector
	DefaultExportInterval = 60 * time.Second
)

// Config represents the telemetry section of the configuration file
type Config struct {
	// Enabled turns telemetry on. When false no SDK provider is created.
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the collector "host:port". The /v1/traces and /v1/metrics paths are implied.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	// Headers are sent with every export request, e.g. collector credentials
	Headers map[string]string `yaml:"headers,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing settings
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of root traces recorded, between 0.0 and 1.0.
	// Zero means DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics settings
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prometheus also serves metrics on the API server's /metrics endpoint
	Prometheus bool `yaml:"prometheus,omitempty"`

	// ExportInterval is the OTLP push interval (e.g., "30s"). Defaults to 60s.
	ExportInterval string `yaml:"exportInterval,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c == nil || c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c == nil || c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c == nil || c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// prometheusEnabled reports whether a Prometheus registry should back /metrics
func (c *Config) prometheusEnabled() bool {
	return c.metricsEnabled() && c.Metrics.Prometheus
}

// GetSampling returns the sampling ratio. Zero cannot be told apart from an
// unset value in YAML, so it maps to DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c == nil || c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExportInterval returns the parsed push interval. Configuration is
// validated on load, so parse failures fall back to the default.
func (c *MetricsConfig) GetExportInterval() time.Duration {
	if c == nil || c.ExportInterval == "" {
		return DefaultExportInterval
	}
	interval, err := time.ParseDuration(c.ExportInterval)
	if err != nil || interval <= 0 {
		return DefaultExportInterval
	}
	return interval
}

// Validate validates the telemetry configuration. A nil or disabled
// configuration is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	for name := range c.Headers {
		if name == "" {
			errs = append(errs, errors.New("headers: header name must not be empty"))
		}
	}
	return errors.Join(errs...)
}

// Validate validates the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate validates the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled || c.ExportInterval == "" {
		return nil
	}
	interval, err := time.ParseDuration(c.ExportInterval)
	if err != nil {
		return fmt.Errorf("exportInterval must be a valid duration: %w", err)
	}
	if interval <= 0 {
		return errors.New("exportInterval must be positive")
	}
	return nil
}
