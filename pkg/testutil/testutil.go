// Package testutil provides testing utilities for resultset packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/resultset/pkg/logger"
)

// Logger installs a logger that writes to the test output as the global
// logger. The previous logger is restored when the test completes.
func Logger(t testing.TB) *zap.Logger {
	l := zaptest.NewLogger(t)
	swapLogger(t, l)
	return l
}

// ObserveLogs installs a global logger that records entries at level and
// above, and returns the recorded entries.
func ObserveLogs(t testing.TB, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	swapLogger(t, zap.New(core))
	return logs
}

func swapLogger(t testing.TB, l *zap.Logger) {
	prev := logger.Get()
	logger.Set(l)
	t.Cleanup(func() { logger.Set(prev) })
}

// RecordSpans installs a tracer provider that keeps finished spans in
// memory. The previous provider is restored when the test completes.
func RecordSpans(t testing.TB) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

// Context returns a context with a 30-second timeout that is cancelled when
// the test completes.
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SpanNames returns the names of the recorded spans in end order.
func SpanNames(exporter *tracetest.InMemoryExporter) []string {
	spans := exporter.GetSpans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	return names
}
