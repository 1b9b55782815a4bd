package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey struct{}

var (
	// Logger is the global logger instance
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	contextKey = ctxKey{}
)

// Config represents logging configuration
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // json or console
	Output     string `json:"output" yaml:"output"` // stdout, stderr, or file path
	TimeFormat string `json:"time_format" yaml:"time_format"`
	Caller     bool   `json:"caller" yaml:"caller"`
}

// DefaultConfig returns default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		Caller:     false,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config, version string) error {
	output, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	return InitWithWriter(cfg, version, output)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(cfg Config, version string, output io.Writer) error {
	if err := SetLevel(cfg.Level); err != nil {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	logContext := zerolog.New(output).With().Timestamp()

	if cfg.Caller {
		logContext = logContext.Caller()
	}

	if hostname, err := os.Hostname(); err == nil {
		logContext = logContext.Str("hostname", hostname)
	}

	if version == "" {
		version = "dev"
	}
	logContext = logContext.
		Str("service", "mdcagent").
		Str("version", version)

	Logger = logContext.Logger()
	log.Logger = Logger

	return nil
}

// SetLevel changes the global level. Used on config hot reload.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// DebugEnabled reports whether debug events are currently emitted.
func DebugEnabled() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return file, nil
	}
}

// WithContext adds logger to context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext retrieves logger from context
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(contextKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger
}

// WithComponent returns a logger for a specific component
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Redact keeps the first four characters of a secret-ish value.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", 8)
}
