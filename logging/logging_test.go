package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, level, err := New(Config{Level: "debug", Console: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
	if level.Level() != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", level.Level())
	}

	level.SetLevel(zapcore.WarnLevel)
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled after retuning to warn")
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	_, level, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level.Level() != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", level.Level())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wineclass.log")
	logger, _, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("artifact loaded")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}
