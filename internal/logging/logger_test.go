package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"":        zapcore.InfoLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range cases {
		logger, err := NewLogger(input)
		if err != nil {
			t.Fatalf("failed to build logger for %q: %v", input, err)
		}
		if !logger.Core().Enabled(want) {
			t.Fatalf("expected %s to be enabled for %q", want, input)
		}
		if want > zapcore.DebugLevel && logger.Core().Enabled(want-1) {
			t.Fatalf("expected %s to be disabled for %q", want-1, input)
		}
	}
}
