package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("creates logger with valid config", func(t *testing.T) {
		l := New(Config{Level: "debug", Format: "json", Output: "stdout"})
		require.NotNil(t, l)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		l := New(Config{Level: "chatty", Format: "json", Output: "stdout"})
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestNewForEnvironment(t *testing.T) {
	assert.NotNil(t, NewForEnvironment("production"))
	assert.NotNil(t, NewForEnvironment("development"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), tt.input)
	}
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	ctx := context.Background()

	ctx, l := WithRequestID(ctx, base, "req-1")
	ctx, l = WithCompanyID(ctx, l, "company-2")
	ctx, l = WithUserID(ctx, l, "user-3")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "company-2", GetCompanyID(ctx))
	assert.Equal(t, "user-3", GetUserID(ctx))

	l.Info("hello")
	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "company-2", fields["company_id"])
	assert.Equal(t, "user-3", fields["user_id"])

	// FromContext returns the enriched logger stored by the With helpers
	assert.NotNil(t, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	// No-op logger swallows everything without panicking
	l.Info("ignored")
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	base := zap.NewNop()
	assert.Equal(t, base, WithTraceContext(context.Background(), base))
}
