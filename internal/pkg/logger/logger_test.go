package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// helper to route the global logger into an in-memory observer
func setupTestLogger(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestGetTraceID(t *testing.T) {
	ctxWithID := context.WithValue(context.Background(), traceIDKey, "id123")
	assert.Equal(t, "id123", getTraceID(ctxWithID))

	assert.Empty(t, getTraceID(context.Background()))

	ctxWrongType := context.WithValue(context.Background(), traceIDKey, 42)
	assert.Empty(t, getTraceID(ctxWrongType))
}

func TestCtxInfo_InjectsTraceID(t *testing.T) {
	logs := setupTestLogger(t, zapcore.DebugLevel)

	ctx := WithTraceID(context.Background(), "trace-edge")
	CtxInfo(ctx, "info with trace ID")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "info with trace ID", entry.Message)
	assert.Equal(t, "trace-edge", entry.ContextMap()["trace_id"])
	assert.Equal(t, "autosell-worker", entry.ContextMap()["service_name"])
}

func TestCtxWarn_NoTraceID(t *testing.T) {
	logs := setupTestLogger(t, zapcore.DebugLevel)

	CtxWarn(context.Background(), "warn without trace ID")

	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["trace_id"]
	assert.False(t, ok)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestCtxError_IncludesErrorAndTraceID(t *testing.T) {
	logs := setupTestLogger(t, zapcore.DebugLevel)

	ctx := WithTraceID(context.Background(), "trace-error")
	CtxError(ctx, "error occurred", errors.New("fatal error"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "fatal error", fields["error"])
	assert.Equal(t, "trace-error", fields["trace_id"])
}

func TestNonContextError_IncludesErrorField(t *testing.T) {
	logs := setupTestLogger(t, zapcore.DebugLevel)

	Error("error message", errors.New("fail"), zap.String("loan_id", "abc"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "fail", fields["error"])
	assert.Equal(t, "abc", fields["loan_id"])
	_, ok := fields["trace_id"]
	assert.False(t, ok)
}

func TestLogLevelFiltering(t *testing.T) {
	logs := setupTestLogger(t, zapcore.InfoLevel)

	Debug("debug should not show")
	Info("info should show")
	CtxDebug(context.Background(), "ctx debug should not show")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "info should show", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("unknown"))
}

func TestInit_DoesNotPanic(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	assert.NotPanics(t, func() {
		Init("info")
		Info("test message")
		Warn("test warning message")
	})
}
