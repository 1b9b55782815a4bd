package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// Provider kinds
const (
	ProviderAzure = "azure"
	ProviderMock  = "mock"
)

// Config represents the complete mdcagent configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Azure    AzureConfig    `yaml:"azure"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  logging.Config `yaml:"logging"`
	// Debug adds error type diagnostics to internal error responses.
	Debug bool `yaml:"debug"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AzureConfig identifies the subscription and service principal.
// Empty client credentials fall back to the default Azure credential chain.
type AzureConfig struct {
	SubscriptionID string `yaml:"subscription_id"`
	TenantID       string `yaml:"tenant_id"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
}

// ProviderConfig controls how the recommendation source is called
type ProviderConfig struct {
	Kind              string        `yaml:"kind"`
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Provider: ProviderConfig{
			Kind:              ProviderAzure,
			MaxAttempts:       5,
			InitialBackoff:    time.Second,
			MaxBackoff:        60 * time.Second,
			RequestsPerSecond: 12,
			Burst:             4,
			CallTimeout:       2 * time.Minute,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the YAML file at path (optional), fills defaults and applies
// environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults restores zero values a partial file may have cleared
func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = defaults.Provider.Kind
	}
	if cfg.Provider.MaxAttempts == 0 {
		cfg.Provider.MaxAttempts = defaults.Provider.MaxAttempts
	}
	if cfg.Provider.InitialBackoff == 0 {
		cfg.Provider.InitialBackoff = defaults.Provider.InitialBackoff
	}
	if cfg.Provider.MaxBackoff == 0 {
		cfg.Provider.MaxBackoff = defaults.Provider.MaxBackoff
	}
	if cfg.Provider.CallTimeout == 0 {
		cfg.Provider.CallTimeout = defaults.Provider.CallTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = defaults.Logging.Output
	}
	if cfg.Logging.TimeFormat == "" {
		cfg.Logging.TimeFormat = defaults.Logging.TimeFormat
	}
}

// applyEnvironmentOverrides applies environment variable overrides to configuration
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("AZURE_SUBSCRIPTION_ID"); v != "" {
		cfg.Azure.SubscriptionID = v
	}
	if v := os.Getenv("AZURE_TENANT_ID"); v != "" {
		cfg.Azure.TenantID = v
	}
	if v := os.Getenv("AZURE_CLIENT_ID"); v != "" {
		cfg.Azure.ClientID = v
	}
	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		cfg.Azure.ClientSecret = v
	}

	if v := os.Getenv("MDC_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MDC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MDC_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	if v := os.Getenv("MDC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MDC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MDC_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
	if v := os.Getenv("MDC_PROVIDER"); v != "" {
		cfg.Provider.Kind = strings.ToLower(v)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Provider.Kind {
	case ProviderAzure, ProviderMock:
	default:
		return fmt.Errorf("invalid provider.kind: %s", c.Provider.Kind)
	}

	if c.Provider.MaxAttempts < 1 || c.Provider.MaxAttempts > 10 {
		return fmt.Errorf("provider.max_attempts must be between 1 and 10")
	}
	if c.Provider.InitialBackoff < 0 || c.Provider.MaxBackoff < c.Provider.InitialBackoff {
		return fmt.Errorf("provider.max_backoff must not be lower than provider.initial_backoff")
	}
	if c.Provider.RequestsPerSecond < 0 || c.Provider.Burst < 0 {
		return fmt.Errorf("provider rate limits must not be negative")
	}

	if c.Azure.SubscriptionID != "" && !models.IsSubscriptionID(c.Azure.SubscriptionID) {
		return fmt.Errorf("azure.subscription_id is not a valid subscription id: %s", c.Azure.SubscriptionID)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}
