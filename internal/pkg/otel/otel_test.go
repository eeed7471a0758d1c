package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupWithoutCollector(t *testing.T) {
	shutdown, err := Setup(context.Background(), "autosell-worker", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithCollector(t *testing.T) {
	t.Cleanup(func() { SetTracer(nil) })

	shutdown, err := Setup(context.Background(), "autosell-worker", "localhost:4318")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotNil(t, GetTracer())

	_ = shutdown(context.Background())
}

func TestGetTracerDefaultsToNoop(t *testing.T) {
	SetTracer(nil)
	_, span := GetTracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestSetTracerRecordsSpans(t *testing.T) {
	t.Cleanup(func() { SetTracer(nil) })

	recorder := tracetest.NewSpanRecorder()
	SetTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test"))

	_, span := GetTracer().Start(context.Background(), "cycle")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "cycle", recorder.Ended()[0].Name())
}
