package zaplogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestFieldsAreForwarded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := logger()
	Replace(zap.New(core))
	defer func() {
		mu.Lock()
		log = previous
		mu.Unlock()
	}()

	Warn("snapshot short", Fields{"endpoint": "allIndices", "lines": 3})
	Info("no fields")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "snapshot short", entries[0].Message)
		assert.Equal(t, "allIndices", entries[0].ContextMap()["endpoint"])
		assert.EqualValues(t, 3, entries[0].ContextMap()["lines"])
		assert.Empty(t, entries[1].ContextMap())
	}
}
