package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestHeaderCarrierCapturesTraceparent(t *testing.T) {
	ctx := spanContext(t)

	headers := HeaderCarrier(ctx)
	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", headers[TraceparentHeader])
}

func TestHeaderCarrierEmptyWithoutSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := HeaderCarrier(context.Background())
	assert.Empty(t, headers[TraceparentHeader])
}

func TestExtractKafkaHeadersRoundTrip(t *testing.T) {
	ctx := spanContext(t)
	headers := HeaderCarrier(ctx)

	kafkaHeaders := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	extracted := ExtractKafkaHeaders(context.Background(), kafkaHeaders)
	sc := trace.SpanContextFromContext(extracted)
	assert.Equal(t, trace.SpanContextFromContext(ctx).TraceID(), sc.TraceID())
	assert.True(t, sc.IsRemote())
}
