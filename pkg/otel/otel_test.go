package otel

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"orderflow/pkg/logger"
)

func TestInitTracingStdout(t *testing.T) {
	var spans bytes.Buffer
	tp, shutdown, err := InitTracing(logger.NewNop(), Config{
		ServiceName: "orderflow-test",
		Probability: 1.0,
		Stdout:      &spans,
	})
	require.NoError(t, err)

	ctx := InjectTracing(context.Background(), tp.Tracer("test"))
	ctx, span := AddSpan(ctx, "order.create", attribute.Int64("order.id", 1))
	assert.Len(t, GetTraceID(ctx), 32)
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, spans.String(), "order.create")
	assert.Contains(t, spans.String(), "order.id")
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestExtractHTTPContinuesTrace(t *testing.T) {
	_, shutdown, err := InitTracing(logger.NewNop(), Config{ServiceName: "orderflow-test", Probability: 1.0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	h := http.Header{}
	h.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := ExtractHTTP(context.Background(), h)
	ctx, span := AddSpan(ctx, "child")
	defer span.End()

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
}
