package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestConfigFromEnv_SamplerRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "")
	cfg, warnings := ConfigFromEnv("borga-orders-api")
	require.Equal(t, 1.0, cfg.SamplerRatio)
	require.Empty(t, warnings)

	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "0.25")
	cfg, _ = ConfigFromEnv("borga-orders-api")
	require.Equal(t, 0.25, cfg.SamplerRatio)

	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "3")
	cfg, warnings = ConfigFromEnv("borga-orders-api")
	require.Equal(t, 1.0, cfg.SamplerRatio)
	require.Len(t, warnings, 1)
}

func TestNewLogger_AddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", slog.LevelInfo).With(slog.String("order.id", "7"))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "order transitioned")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", record["trace_id"])
	require.Equal(t, "00f067aa0ba902b7", record["span_id"])
	require.Equal(t, "7", record["order.id"])
}

func TestNewLogger_TextFormatWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "TEXT", slog.LevelWarn).Info("dropped")
	require.Empty(t, buf.String())

	NewLogger(&buf, "text", slog.LevelInfo).Info("kept")
	require.Contains(t, buf.String(), "msg=kept")
	require.NotContains(t, buf.String(), "trace_id")
}

func TestInstruments_NilSafe(t *testing.T) {
	var instruments *Instruments
	require.NotNil(t, instruments.Tracer("test"))
	require.NotNil(t, instruments.Meter("test"))
}
