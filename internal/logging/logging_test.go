package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", FormatConsole)
	if err != nil {
		t.Fatalf("console logger: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug to be enabled")
	}

	logger, err = New("warn", "")
	if err != nil {
		t.Fatalf("json logger: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info must be disabled at warn level")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", FormatJSON); err == nil {
		t.Fatalf("expected unknown level error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
