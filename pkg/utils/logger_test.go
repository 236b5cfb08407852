package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// ============================================================
// Тесты InitLogger
// ============================================================

func TestInitLogger_Defaults(t *testing.T) {
	// Пустая конфигурация - применяются значения по умолчанию
	logger := InitLogger(LogConfig{})

	if logger == nil {
		t.Fatal("InitLogger returned nil")
	}
	if logger.Logger == nil {
		t.Fatal("Logger.Logger is nil")
	}
	if logger.Sugar() == nil {
		t.Fatal("Logger.Sugar() is nil")
	}
}

func TestInitLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json format", "json"},
		{"console format", "console"},
		{"text alias", "text"},
		{"unknown falls back to json", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := InitLogger(LogConfig{Level: "info", Format: tt.format})
			if logger == nil {
				t.Fatal("InitLogger returned nil")
			}
			logger.Info("format probe")
			logger.Sync()
		})
	}
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
		{"DEBUG", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"trace", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	// Логгер уровня error не должен паниковать на debug/info вызовах
	logger := InitLogger(LogConfig{Level: "error", Format: "json"})

	logger.Debug("suppressed")
	logger.Info("suppressed")
	logger.Warn("suppressed")
	logger.Sync()
}
