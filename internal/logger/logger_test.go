package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"ERROR", zapcore.ErrorLevel},
		{"warn", zapcore.WarnLevel},
		{" DEBUG ", zapcore.DebugLevel},
		{"TRACE", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core).Sugar()

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Infow("[Pipeline] fitted", "stage", "closure")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "[Pipeline] fitted", entries[0].Message)
		assert.Equal(t, "closure", entries[0].ContextMap()["stage"])
	}

	assert.NotNil(t, FromContext(context.Background()))
}

func TestNew(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_LEVEL", "WARN")

	l := New()
	assert.False(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))
}
