package tracing

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "req_")
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req_abc")
	ctx = WithTraceID(ctx, "trace123")
	start := time.Now()
	ctx = WithStartTime(ctx, start)

	assert.Equal(t, "req_abc", GetRequestID(ctx))
	assert.Equal(t, "trace123", GetTraceID(ctx))
	assert.Equal(t, start, GetStartTime(ctx))
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.True(t, GetStartTime(ctx).IsZero())
	assert.Equal(t, time.Duration(0), Duration(ctx))
}

func TestDuration(t *testing.T) {
	ctx := WithStartTime(context.Background(), time.Now().Add(-time.Second))
	assert.GreaterOrEqual(t, Duration(ctx), time.Second)
}

func newQuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestManager_DisabledIsNoOp(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = false

	m := NewManager(cfg, newQuietLogger())
	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_StdoutExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.UseStdout = true
	cfg.SampleRate = 1.0

	m := NewManager(cfg, newQuietLogger())
	require.NoError(t, m.Initialize(context.Background()))

	ctx, span := WithOtelTracing(context.Background(), "test-span")
	assert.NotEmpty(t, GetTraceID(ctx))
	span.End()

	require.NoError(t, m.Shutdown(context.Background()))
}
