// Package config provides configuration management for the Quill server.
// Configuration is YAML, decoded over DefaultConfig, with ${VAR} and
// ${VAR:-default} references expanded from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in ProviderConfig.Backend.
const (
	BackendGollm        = "gollm"
	BackendOllamaNative = "ollama_native"
)

// Config represents the complete server configuration.
type Config struct {
	Server             ServerConfig              `yaml:"server"`
	LLM                LLMConfig                 `yaml:"llm"`
	Providers          map[string]ProviderConfig `yaml:"providers"`
	ProviderPreference []string                  `yaml:"provider_preference"` // Order of provider preference
	CircuitBreaker     CircuitBreakerConfig      `yaml:"circuit_breaker"`
	HealthCheck        HealthCheckConfig         `yaml:"health_check"`
	Logging            LoggingConfig             `yaml:"logging"`
	RateLimit          RateLimitConfig           `yaml:"rate_limit"`
	Queue              QueueConfig               `yaml:"queue"`
	Auth               AuthConfig                `yaml:"auth"`
	CORS               CORSConfig                `yaml:"cors"`
	Store              StoreConfig               `yaml:"store"`
	Transform          TransformConfig           `yaml:"transform"`
	TestMode           bool                      `yaml:"-"` // Skip provider initialization in tests
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 3000)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. It must exceed the provider
	// timeout, since the backend call happens before the first byte is written
	// (default: 90s)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes caps request bodies (default: 1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ShutdownTimeout specifies how long to wait for in-flight requests
	// before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig is the single provider used when no providers map is configured.
type LLMConfig struct {
	// Provider is the gollm provider name (e.g. "openai", "anthropic", "ollama")
	Provider string `yaml:"provider"`

	// Model is the name of the model to use (e.g. "gpt-4o-mini")
	Model string `yaml:"model"`

	// APIKey is the authentication key for the provider's API.
	// Use environment variables (e.g. ${OPENAI_API_KEY}).
	APIKey string `yaml:"api_key"`

	// Endpoint overrides the API endpoint, e.g. "http://localhost:11434" for Ollama
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single completion call (default: 60s)
	Timeout time.Duration `yaml:"timeout"`

	// Options contains provider-specific generation parameters
	Options map[string]interface{} `yaml:"options"`
}

// ProviderConfig holds configuration for one named completion backend.
type ProviderConfig struct {
	Type     string                 `yaml:"type"`    // gollm provider type (e.g. openai, anthropic, ollama)
	Backend  string                 `yaml:"backend"` // gollm (default) or ollama_native
	Model    string                 `yaml:"model"`
	APIKey   string                 `yaml:"api_key"`
	Endpoint string                 `yaml:"endpoint"`
	Timeout  time.Duration          `yaml:"timeout"`
	Options  map[string]interface{} `yaml:"options"`
}

// CircuitBreakerConfig configures the breaker guarding each provider.
type CircuitBreakerConfig struct {
	// MaxRequests is the number of requests allowed through in the half-open state
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state after which the
	// failure counts are cleared
	Interval time.Duration `yaml:"interval"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failures that trips the circuit
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// HealthCheckConfig configures the periodic provider probes.
type HealthCheckConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`

	// File, when its path is set, also writes logs to a rotating file.
	File LogFileConfig `yaml:"file"`
}

// LogFileConfig configures the rotating log file.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// RateLimitConfig configures the per client token bucket.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute is the sustained rate per client
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the bucket size
	Burst int `yaml:"burst"`

	// CleanupInterval evicts idle client buckets
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// QueueConfig bounds the number of requests admitted at once.
type QueueConfig struct {
	// Enabled determines if the queue middleware is active
	Enabled bool `yaml:"enabled"`

	// MaxSize is the number of concurrently admitted requests
	MaxSize int64 `yaml:"max_size"`
}

// AuthConfig lists the accepted API keys. Authentication is off when empty.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// Enabled reports whether any API key is configured.
func (a AuthConfig) Enabled() bool {
	for _, k := range a.APIKeys {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

// CORSConfig configures cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins"`
	AllowedMethods []string      `yaml:"allowed_methods"`
	AllowedHeaders []string      `yaml:"allowed_headers"`
	MaxAge         time.Duration `yaml:"max_age"`
}

// StoreConfig configures the save/read store.
type StoreConfig struct {
	// MaxEntries bounds the store; the oldest entry is evicted first.
	// Zero keeps every entry for the process lifetime.
	MaxEntries int `yaml:"max_entries"`
}

// TransformConfig configures request limits of the transform endpoints.
type TransformConfig struct {
	// MaxInputTokens rejects texts above this many tokens. Zero disables the check.
	MaxInputTokens int `yaml:"max_input_tokens"`

	// Encoding is the tiktoken encoding used to count tokens
	Encoding string `yaml:"encoding"`
}

// DefaultConfig returns the configuration used when no file is given: a
// single OpenAI gpt-4o-mini provider keyed by OPENAI_API_KEY.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},

		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			APIKey:   "${OPENAI_API_KEY}",
			Timeout:  60 * time.Second,
		},

		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},

		HealthCheck: HealthCheckConfig{
			Enabled:          false,
			Interval:         time.Minute,
			Timeout:          10 * time.Second,
			FailureThreshold: 2,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},

		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 60,
			Burst:             10,
			CleanupInterval:   10 * time.Minute,
		},

		Queue: QueueConfig{
			Enabled: false,
			MaxSize: 100,
		},

		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
			MaxAge:         10 * time.Minute,
		},

		Transform: TransformConfig{
			MaxInputTokens: 8000,
			Encoding:       "cl100k_base",
		},
	}
}

// LoadFile loads configuration from a YAML file. A .env file next to the
// config file, and one in the working directory, are loaded first.
func LoadFile(filename string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(filename), ".env"), ".env"); err != nil {
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// LoadDefault returns DefaultConfig with its environment references resolved,
// after loading .env from the working directory.
func LoadDefault() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return Load(strings.NewReader(""))
}

// LoadDotEnv loads the given .env files into the process environment. Missing
// files are skipped; variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references.
// An unset or empty variable with a default resolves to the default.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			if val := os.Getenv(key[:i]); val != "" {
				return val
			}
			return key[i+2:]
		}
		return os.Getenv(key)
	})
}

// Load loads configuration from an io.Reader.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	config := DefaultConfig()

	if strings.TrimSpace(expanded) != "" {
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	// Defaults carry references too, e.g. the OpenAI key.
	config.expandDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

func (c *Config) expandDefaults() {
	c.LLM.APIKey = expandReference(c.LLM.APIKey)
	for name, p := range c.Providers {
		p.APIKey = expandReference(p.APIKey)
		c.Providers[name] = p
	}
}

// expandReference expands s only if it still holds a ${...} reference.
func expandReference(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return expandEnvVars(s)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("negative max body bytes: %d", c.Server.MaxBodyBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	if len(c.Providers) == 0 {
		if c.LLM.Provider == "" {
			return fmt.Errorf("empty LLM provider")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("empty LLM model")
		}
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("negative LLM timeout: %v", c.LLM.Timeout)
	}

	for name, p := range c.Providers {
		switch p.Backend {
		case "", BackendGollm:
			if p.Type == "" {
				return fmt.Errorf("provider %s: empty type", name)
			}
		case BackendOllamaNative:
		default:
			return fmt.Errorf("provider %s: unknown backend %q", name, p.Backend)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %s: empty model", name)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("provider %s: negative timeout: %v", name, p.Timeout)
		}
	}
	for _, name := range c.ProviderPreference {
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("provider_preference references unknown provider %q", name)
		}
	}

	if c.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker failure threshold must be positive")
	}
	if c.CircuitBreaker.Timeout < 0 || c.CircuitBreaker.Interval < 0 {
		return fmt.Errorf("negative circuit breaker duration")
	}

	if c.HealthCheck.Enabled && c.HealthCheck.Interval <= 0 {
		return fmt.Errorf("health check interval must be positive: %v", c.HealthCheck.Interval)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit requests per minute must be positive: %d", c.RateLimit.RequestsPerMinute)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive: %d", c.RateLimit.Burst)
		}
	}

	if c.Queue.Enabled && c.Queue.MaxSize <= 0 {
		return fmt.Errorf("queue max size must be positive: %d", c.Queue.MaxSize)
	}

	if c.Store.MaxEntries < 0 {
		return fmt.Errorf("negative store max entries: %d", c.Store.MaxEntries)
	}

	if c.Transform.MaxInputTokens < 0 {
		return fmt.Errorf("negative max input tokens: %d", c.Transform.MaxInputTokens)
	}

	return nil
}
