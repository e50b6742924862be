package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDefaultLoggerIsNop(t *testing.T) {
	assert.NotNil(t, Logger)
	Logger.Info("dropped")
}

func TestInitLogger(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	assert.NoError(t, InitLogger("debug", "json"))
	assert.True(t, Logger.Core().Enabled(zap.DebugLevel))

	assert.NoError(t, InitLogger("warn", "console"))
	assert.False(t, Logger.Core().Enabled(zap.InfoLevel))
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	assert.Error(t, InitLogger("loud", "console"))
	assert.Same(t, prev, Logger)
}
