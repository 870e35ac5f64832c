package logger

import (
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
		{"debug", zapcore.DebugLevel},
		{"development", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"production", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestGet_WithoutInit(t *testing.T) {
	mu.Lock()
	global = nil
	mu.Unlock()

	log := Get()
	assert.NotNil(t, log)
	log.Info("discarded")
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "debug", ServiceName: "trail-booking", Development: true})
	assert.NoError(t, err)
	assert.NotNil(t, Get())
	Sync()
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := New(zap.New(core)).With(zap.String("request_id", "req-1"))

	log.Info("booking admitted", zap.String("protocol", "ECO-202501-0001"))
	log.Debug("filtered out")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "booking admitted", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "req-1", ctx["request_id"])
	assert.Equal(t, "ECO-202501-0001", ctx["protocol"])
}
