// Package telemetry wires OpenTelemetry trace and log export over OTLP/HTTP
// from environment configuration.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/amp-labs/stateful/logger"
	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceVersion = "1.0.0"
	clusterCollector      = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var (
	mut            sync.Mutex               //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
	loggerProvider *sdklog.LoggerProvider   //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"OTEL_SERVICE_NAME"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION"               envDefault:"1.0.0"`
	Environment    string        `env:"ENVIRONMENT"`
	Endpoint       string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	LogsEndpoint   string        `env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
	Enabled        bool          `env:"OTEL_ENABLED"                       envDefault:"false"`
	Timeout        time.Duration `env:"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"  envDefault:"5s"`
}

// LoadConfigFromEnv loads the configuration from environment variables.
// The service name defaults to the logging subsystem and the environment to
// runningEnv. Inside Kubernetes the trace endpoint defaults to the cluster
// collector.
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse telemetry environment: %w", err)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = logger.GetSubsystem(ctx)
	}

	if cfg.Environment == "" {
		cfg.Environment = runningEnv
	}

	if cfg.Endpoint == "" && os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		cfg.Endpoint = clusterCollector
	}

	return &cfg, nil
}

// Initialize sets up OpenTelemetry tracing, and log export when a logs
// endpoint is configured, with the given configuration.
func Initialize(ctx context.Context, config *Config) error {
	log := logger.Get(ctx)

	if !config.Enabled {
		log.Debug("OpenTelemetry is disabled")

		return nil
	}

	if config.Endpoint == "" {
		log.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	var lp *sdklog.LoggerProvider

	if config.LogsEndpoint != "" {
		logExporter, err := otlploghttp.New(ctx,
			otlploghttp.WithEndpointURL(config.LogsEndpoint),
			otlploghttp.WithTimeout(config.Timeout),
		)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to create OTLP log exporter: %w", err), tp.Shutdown(ctx))
		}

		lp = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)

		global.SetLoggerProvider(lp)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mut.Lock()
	tracerProvider = tp
	loggerProvider = lp
	mut.Unlock()

	log.Info("OpenTelemetry initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"logs", config.LogsEndpoint != "",
	)

	return nil
}

// Shutdown flushes and stops the providers set up by Initialize.
func Shutdown(ctx context.Context) error {
	mut.Lock()
	tp, lp := tracerProvider, loggerProvider
	tracerProvider, loggerProvider = nil, nil
	mut.Unlock()

	var errs []error

	if tp != nil {
		logger.Get(ctx).Debug("Shutting down OpenTelemetry tracer provider")
		errs = append(errs, tp.Shutdown(ctx))
	}

	if lp != nil {
		errs = append(errs, lp.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
