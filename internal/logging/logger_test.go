package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopLoggerDiscards(t *testing.T) {
	logger := Nop()
	// Must not panic regardless of arguments.
	logger.Debug("debug %d", 1)
	logger.Info("info")
	logger.Warn("warn %s", "x")
	logger.Error("error %v", nil)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	custom := NewComponentLogger("test")
	assert.Equal(t, custom, OrNop(custom))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, parseLevel("debug"))
	assert.Equal(t, WARN, parseLevel("WARN"))
	assert.Equal(t, ERROR, parseLevel("error"))
	assert.Equal(t, INFO, parseLevel("anything"))
}
