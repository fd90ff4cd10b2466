package observability

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// Exporter names accepted by TracingConfig.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	Environment    string  `yaml:"environment"`
	SamplingRate   float64 `yaml:"sampling_rate"`
	// Exporter is "none" (the default) or "stdout".
	Exporter string `yaml:"exporter"`
	// PrettyPrint indents stdout spans.
	PrettyPrint bool `yaml:"pretty_print"`

	// Writer overrides os.Stdout for the stdout exporter.
	Writer io.Writer `yaml:"-"`
	// SpanExporter, when set, replaces the named exporter and is flushed
	// synchronously on every span end.
	SpanExporter sdktrace.SpanExporter `yaml:"-"`
}

// DefaultTracingConfig returns a configuration with tracing disabled.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "resultset",
		ServiceVersion: "dev",
		Environment:    "development",
		SamplingRate:   1.0,
		Exporter:       ExporterNone,
	}
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracing installs a global tracer provider. With the "none" exporter
// and no SpanExporter the global no-op provider is left in place.
func InitTracing(config TracingConfig) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	var (
		exporter sdktrace.SpanExporter
		syncer   bool
		err      error
	)
	switch {
	case config.SpanExporter != nil:
		exporter, syncer = config.SpanExporter, true
	case config.Exporter == "" || config.Exporter == ExporterNone:
		return noop, nil
	case config.Exporter == ExporterStdout:
		var opts []stdouttrace.Option
		if config.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(config.Writer))
		}
		if config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		if exporter, err = stdouttrace.New(opts...); err != nil {
			return noop, rserrors.Wrap(err, rserrors.ErrorTypeConfig, "failed to create stdout exporter")
		}
	default:
		return noop, rserrors.New(rserrors.ErrorTypeConfig, "unknown trace exporter").
			WithDetail("exporter", config.Exporter)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return noop, rserrors.Wrap(err, rserrors.ErrorTypeConfig, "failed to create resource")
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if syncer {
		opts = append(opts, sdktrace.WithSyncer(exporter))
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
