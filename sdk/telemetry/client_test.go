package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestClient(t *testing.T, buf *bytes.Buffer) *Client {
	t.Helper()
	client, err := New(context.Background(), "signal-test", "test",
		WithMetricsDisabled(),
		WithTracesDisabled(),
		WithLogWriter(buf),
		WithLogLevel(slog.LevelDebug),
	)
	require.NoError(t, err)
	return client
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestClient_LogsIncludeContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	client := newTestClient(t, &buf)

	ctx := AppendCommonAttrs(context.Background(), attribute.String("component", "core"))
	ctx = AppendEventAttrs(ctx, attribute.String("record_id", "abc"))
	client.Info(ctx, "Signal stored", attribute.Int("ticket", 42))
	client.Error(ctx, "Broker rejected", errors.New("no money"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "Signal stored", lines[0]["msg"])
	assert.Equal(t, "core", lines[0]["component"])
	assert.Equal(t, "abc", lines[0]["record_id"])
	assert.EqualValues(t, 42, lines[0]["ticket"])
	assert.Equal(t, "signal-test", lines[0]["service"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "no money", lines[1]["error"])
}

func TestClient_LogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	client, err := New(context.Background(), "signal-test", "test",
		WithMetricsDisabled(),
		WithTracesDisabled(),
		WithLogWriter(&buf),
		WithLogLevel(slog.LevelWarn),
	)
	require.NoError(t, err)

	client.Debug(context.Background(), "hidden")
	client.Info(context.Background(), "hidden")
	client.Warn(context.Background(), "shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestClient_MetricsDisabledUsesNoopMeter(t *testing.T) {
	var buf bytes.Buffer
	client := newTestClient(t, &buf)
	ctx := context.Background()

	bundle := client.SignalMetrics()
	require.NotNil(t, bundle)
	assert.Same(t, bundle, client.SignalMetrics())

	assert.NotPanics(t, func() {
		bundle.RecordMessageReceived(ctx)
		bundle.RecordParseResult(ctx, 1.5, attribute.String("signal.type", "COMPLETE"))
		bundle.RecordExecution(ctx, 12, attribute.String("signal.status", "SUCCESS"))
		bundle.AdjustQueueDepth(ctx, 1)
		client.RecordCounter(ctx, "custom.counter", 1)
		client.RecordLatency(ctx, "custom", 3.2)
	})

	c1, err := client.GetOrCreateCounter("x", "")
	require.NoError(t, err)
	c2, err := client.GetOrCreateCounter("x", "")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	require.NoError(t, client.Shutdown(ctx))
}

func TestNewNoop_Silent(t *testing.T) {
	client := NewNoop("noop")
	ctx, span := client.StartSpan(context.Background(), "op")
	defer span.End()

	assert.NotPanics(t, func() {
		client.Info(ctx, "nothing")
		client.RecordError(ctx, errors.New("boom"))
		client.SignalMetrics().RecordSymbolLookup(ctx)
	})
	assert.Empty(t, GetTraceID(ctx))
}

func TestContextAttrs_DoNotAlias(t *testing.T) {
	base := AppendCommonAttrs(context.Background(), attribute.String("a", "1"))
	left := AppendCommonAttrs(base, attribute.String("b", "2"))
	right := AppendCommonAttrs(base, attribute.String("c", "3"))

	assert.Len(t, GetCommonAttrs(base), 1)
	assert.Equal(t, "b", string(GetCommonAttrs(left)[1].Key))
	assert.Equal(t, "c", string(GetCommonAttrs(right)[1].Key))
	assert.Empty(t, GetMetricAttrs(base))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("bogus"))
}

func TestConfig_EndpointFallback(t *testing.T) {
	cfg := DefaultConfig("s", "e")
	WithOTLPEndpoint("collector:4317")(&cfg)
	assert.Equal(t, "collector:4317", cfg.tracesEndpoint())
	assert.Equal(t, "collector:4317", cfg.metricsEndpoint())

	WithMetricsEndpoint("metrics:4317")(&cfg)
	assert.Equal(t, "metrics:4317", cfg.metricsEndpoint())
	assert.Equal(t, "collector:4317", cfg.tracesEndpoint())
}

func TestClient_SpanExporterCapturesSpans(t *testing.T) {
	var buf bytes.Buffer
	exporter := tracetest.NewInMemoryExporter()
	client, err := New(context.Background(), "signal-test", "test",
		WithMetricsDisabled(),
		WithSpanExporter(exporter),
		WithLogWriter(&buf),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Shutdown(context.Background()) })

	ctx := AppendCommonAttrs(context.Background(), attribute.String("signal.component", "core"))
	ctx, span := client.StartSpan(ctx, "core.test.op")
	ctx = AppendEventAttrs(ctx, attribute.String("signal.record_id", "r1"))
	client.SetSpanAttributes(ctx, attribute.String("signal.symbol", "XAUUSD"))
	client.RecordError(ctx, nil)
	client.RecordError(ctx, errors.New("boom"))
	client.Info(ctx, "inside span")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "core.test.op", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	assert.Contains(t, spans[0].Attributes, attribute.String("signal.symbol", "XAUUSD"))
	assert.Contains(t, spans[0].Attributes, attribute.String("signal.component", "core"))

	require.Len(t, spans[0].Events, 1, "nil errors are not recorded")
	assert.Contains(t, spans[0].Events[0].Attributes, attribute.String("signal.record_id", "r1"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), lines[0]["trace_id"])
	assert.Equal(t, spans[0].SpanContext.SpanID().String(), lines[0]["span_id"])
}
