// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package config defines and loads the AgentRouter configuration.
// Precedence: defaults, then YAML file, then environment overrides.
// Validation happens once at load time; the rest of the framework consumes
// plain option records and never re-validates.
package config

import (
	"fmt"
	"time"
)

// Config is the complete framework configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	HTTP       HTTPConfig       `yaml:"http"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Router     RouterConfig     `yaml:"router"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TELEMETRY_ENABLED"`
	ServiceName  string  `yaml:"service_name" env:"TELEMETRY_SERVICE_NAME"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"TELEMETRY_OTLP_ENDPOINT"`
	SampleRate   float64 `yaml:"sample_rate" env:"TELEMETRY_SAMPLE_RATE"`
}

// HTTPConfig configures the shared pooled HTTP client.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT"`
	MaxConns          int           `yaml:"max_conns" env:"HTTP_MAX_CONNS"`
	MaxConnsPerHost   int           `yaml:"max_conns_per_host" env:"HTTP_MAX_CONNS_PER_HOST"`
	IdleConnTimeout   time.Duration `yaml:"idle_conn_timeout" env:"HTTP_IDLE_CONN_TIMEOUT"`
	RetryAttempts     int           `yaml:"retry_attempts" env:"HTTP_RETRY_ATTEMPTS"`
	RetryDelay        time.Duration `yaml:"retry_delay" env:"HTTP_RETRY_DELAY"`
	RetryBackoff      float64       `yaml:"retry_backoff" env:"HTTP_RETRY_BACKOFF"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"HTTP_REQUESTS_PER_SECOND"`
}

// ResilienceConfig holds the default retry and circuit breaker settings;
// providers may override them individually.
type ResilienceConfig struct {
	MaxRetries       int           `yaml:"max_retries" env:"RESILIENCE_MAX_RETRIES"`
	RetryDelay       time.Duration `yaml:"retry_delay" env:"RESILIENCE_RETRY_DELAY"`
	RetryBackoff     float64       `yaml:"retry_backoff" env:"RESILIENCE_RETRY_BACKOFF"`
	FailureThreshold int           `yaml:"failure_threshold" env:"RESILIENCE_FAILURE_THRESHOLD"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" env:"RESILIENCE_RECOVERY_TIMEOUT"`
}

// ProviderConfig configures one LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Optional per-provider resilience overrides; zero values inherit
	// the Resilience defaults.
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       *int          `yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	RetryBackoff     float64       `yaml:"retry_backoff"`
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// ProvidersConfig configures the provider set and fallback order.
type ProvidersConfig struct {
	// FallbackOrder lists provider names in try order; empty means
	// registration order.
	FallbackOrder []string `yaml:"fallback_order"`

	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

// RouterConfig configures request routing and batch processing.
type RouterConfig struct {
	// DefaultAgent handles requests no rule matches.
	DefaultAgent string `yaml:"default_agent" env:"ROUTER_DEFAULT_AGENT"`
	// MaxConcurrency bounds batch processing fan-out.
	MaxConcurrency int `yaml:"max_concurrency" env:"ROUTER_MAX_CONCURRENCY"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "agentrouter",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			MaxConns:        100,
			MaxConnsPerHost: 30,
			IdleConnTimeout: 30 * time.Second,
			RetryAttempts:   3,
			RetryDelay:      1 * time.Second,
			RetryBackoff:    2.0,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       3,
			RetryDelay:       1 * time.Second,
			RetryBackoff:     2.0,
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
		},
		Router: RouterConfig{
			DefaultAgent:   "default",
			MaxConcurrency: 8,
		},
	}
}

// Validate checks the configuration for construction-time errors.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint: required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate: must be in [0,1], got %v", c.Telemetry.SampleRate)
	}

	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("resilience.max_retries: must be >= 0, got %d", c.Resilience.MaxRetries)
	}
	if c.Resilience.RetryBackoff < 1.0 {
		return fmt.Errorf("resilience.retry_backoff: must be >= 1.0, got %v", c.Resilience.RetryBackoff)
	}
	if c.Resilience.FailureThreshold <= 0 {
		return fmt.Errorf("resilience.failure_threshold: must be > 0, got %d", c.Resilience.FailureThreshold)
	}
	if c.Resilience.RecoveryTimeout <= 0 {
		return fmt.Errorf("resilience.recovery_timeout: must be > 0, got %v", c.Resilience.RecoveryTimeout)
	}

	if c.Providers.OpenAI.Enabled && c.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("providers.openai.api_key: required when enabled")
	}
	if c.Providers.Anthropic.Enabled && c.Providers.Anthropic.APIKey == "" {
		return fmt.Errorf("providers.anthropic.api_key: required when enabled")
	}
	for _, name := range c.Providers.FallbackOrder {
		switch name {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("providers.fallback_order: unknown provider %q", name)
		}
	}

	if c.Router.MaxConcurrency <= 0 {
		return fmt.Errorf("router.max_concurrency: must be > 0, got %d", c.Router.MaxConcurrency)
	}

	return nil
}
