package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// Tests here replace the global provider and must not run in parallel.

func TestInitTracerProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitTracerProvider(context.Background(), Config{
		ServiceName: "vacancy-crawler-test",
		RunID:       "run-1",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	_, span := Tracer().Start(context.Background(), "crawl.fetch")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"crawl.fetch"`)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "vacancy-crawler-test")
}

func TestInitTracerProviderNone(t *testing.T) {
	tp, err := InitTracerProvider(context.Background(), Config{ServiceName: "svc"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(context.Background(), "noop")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracerProviderUnknownExporter(t *testing.T) {
	_, err := InitTracerProvider(context.Background(), Config{ServiceName: "svc", Exporter: "jaeger"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}
