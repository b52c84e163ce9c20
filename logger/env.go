package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidLogOutput is returned when LOG_OUTPUT names an unknown destination.
var ErrInvalidLogOutput = errors.New("invalid log output")

// EnvConfig is the environment-driven logging configuration.
type EnvConfig struct {
	JSON        bool       `env:"LOG_JSON"         envDefault:"false"`
	Level       slog.Level `env:"LOG_LEVEL"        envDefault:"INFO"`
	LegacyLevel slog.Level `env:"LEGACY_LOG_LEVEL" envDefault:"INFO"`
	Output      string     `env:"LOG_OUTPUT"       envDefault:"stdout"`
	OTel        bool       `env:"LOG_OTEL"         envDefault:"false"`
}

// Option is a functional option applied by ConfigureLogging after the
// environment has been read.
type Option func(*Options)

// WithOutput overrides the output destination.
func WithOutput(w *os.File) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// LoadEnvConfig reads EnvConfig from the process environment, loading a
// .env file first if one exists.
func LoadEnvConfig() (EnvConfig, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse logging environment: %w", err)
	}

	return cfg, nil
}

// ConfigureLogging configures logging for app from the environment.
func ConfigureLogging(ctx context.Context, app string, opts ...Option) (*slog.Logger, error) {
	cfg, err := LoadEnvConfig()
	if err != nil {
		return nil, err
	}

	var output *os.File

	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, cfg.Output)
	}

	options := Options{
		Subsystem:   app,
		JSON:        cfg.JSON,
		MinLevel:    cfg.Level,
		LegacyLevel: cfg.LegacyLevel,
		Output:      output,
		OTel:        cfg.OTel,
	}

	for _, o := range opts {
		o(&options)
	}

	logger := ConfigureLoggingWithOptions(options)
	logger.DebugContext(ctx, "logging configured", "json", cfg.JSON, "level", cfg.Level.String())

	return logger, nil
}
