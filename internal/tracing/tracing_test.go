package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_WithoutEndpointReturnsNoop(t *testing.T) {
	before := otel.GetTracerProvider()

	tp, shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid(), "noop provider must not record spans")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider(), "global provider must stay untouched")
}

func TestInit_WithEndpointBuildsSDKProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	tp, shutdown, err := Init(context.Background(), Config{
		Endpoint:       "127.0.0.1:4318",
		ServiceName:    "smm-datastore-test",
		ServiceVersion: "test",
		Insecure:       true,
	})
	require.NoError(t, err)

	_, ok := tp.(*sdktrace.TracerProvider)
	assert.True(t, ok, "expected sdk tracer provider, got %T", tp)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
}
