package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence defaults -> YAML file ->
// environment variables.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AGENTROUTER").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with no file and the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTROUTER"}
}

// WithConfigPath sets the YAML file to load. An empty path skips the file
// layer.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the effective configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides configuration from environment variables named
// <prefix>_<KEY>, e.g. AGENTROUTER_LOG_LEVEL.
func (l *Loader) applyEnv(cfg *Config) {
	setString(l.key("LOG_LEVEL"), &cfg.Log.Level)
	setString(l.key("LOG_FORMAT"), &cfg.Log.Format)

	setBool(l.key("TELEMETRY_ENABLED"), &cfg.Telemetry.Enabled)
	setString(l.key("TELEMETRY_SERVICE_NAME"), &cfg.Telemetry.ServiceName)
	setString(l.key("TELEMETRY_OTLP_ENDPOINT"), &cfg.Telemetry.OTLPEndpoint)
	setFloat(l.key("TELEMETRY_SAMPLE_RATE"), &cfg.Telemetry.SampleRate)

	setDuration(l.key("HTTP_TIMEOUT"), &cfg.HTTP.Timeout)
	setInt(l.key("HTTP_MAX_CONNS"), &cfg.HTTP.MaxConns)
	setInt(l.key("HTTP_MAX_CONNS_PER_HOST"), &cfg.HTTP.MaxConnsPerHost)
	setDuration(l.key("HTTP_IDLE_CONN_TIMEOUT"), &cfg.HTTP.IdleConnTimeout)
	setInt(l.key("HTTP_RETRY_ATTEMPTS"), &cfg.HTTP.RetryAttempts)
	setDuration(l.key("HTTP_RETRY_DELAY"), &cfg.HTTP.RetryDelay)
	setFloat(l.key("HTTP_RETRY_BACKOFF"), &cfg.HTTP.RetryBackoff)
	setFloat(l.key("HTTP_REQUESTS_PER_SECOND"), &cfg.HTTP.RequestsPerSecond)

	setInt(l.key("RESILIENCE_MAX_RETRIES"), &cfg.Resilience.MaxRetries)
	setDuration(l.key("RESILIENCE_RETRY_DELAY"), &cfg.Resilience.RetryDelay)
	setFloat(l.key("RESILIENCE_RETRY_BACKOFF"), &cfg.Resilience.RetryBackoff)
	setInt(l.key("RESILIENCE_FAILURE_THRESHOLD"), &cfg.Resilience.FailureThreshold)
	setDuration(l.key("RESILIENCE_RECOVERY_TIMEOUT"), &cfg.Resilience.RecoveryTimeout)

	setString(l.key("OPENAI_API_KEY"), &cfg.Providers.OpenAI.APIKey)
	setString(l.key("OPENAI_BASE_URL"), &cfg.Providers.OpenAI.BaseURL)
	setString(l.key("OPENAI_MODEL"), &cfg.Providers.OpenAI.Model)
	setString(l.key("ANTHROPIC_API_KEY"), &cfg.Providers.Anthropic.APIKey)
	setString(l.key("ANTHROPIC_BASE_URL"), &cfg.Providers.Anthropic.BaseURL)
	setString(l.key("ANTHROPIC_MODEL"), &cfg.Providers.Anthropic.Model)

	setString(l.key("ROUTER_DEFAULT_AGENT"), &cfg.Router.DefaultAgent)
	setInt(l.key("ROUTER_MAX_CONCURRENCY"), &cfg.Router.MaxConcurrency)
}

func (l *Loader) key(name string) string {
	if l.envPrefix == "" {
		return name
	}
	return l.envPrefix + "_" + name
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
