package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLoggerCapturesLevels(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("connecting to %s", "web502")
	l.Warn("slow response")

	assert.True(t, l.HasLevel("debug"))
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))
	assert.Equal(t, "connecting to web502", l.Messages[0].Message)
}

func TestEnvLoggerDebugGated(t *testing.T) {
	t.Setenv("WEBSHIP_DEBUG", "")
	l := NewEnvLogger("[test]")
	// Debug is dropped without WEBSHIP_DEBUG; must not panic.
	l.Debug("hidden %d", 1)

	Noop().Error("discarded")
}
