package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - параметры инициализации логгера
type LogConfig struct {
	// Level: debug, info, warn, error (по умолчанию info)
	Level string

	// Format: json или console (по умолчанию json)
	Format string
}

// Logger оборачивает zap.Logger вместе с sugared-вариантом
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger создает и настраивает структурированный логгер.
// Некорректные значения уровня или формата заменяются значениями
// по умолчанию, ошибки здесь не возвращаются: приложение должно
// уметь логировать даже при кривой конфигурации.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "console", "text":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		Logger: logger,
		sugar:  logger.Sugar(),
	}
}

// Sugar возвращает sugared-логгер для printf-style вызовов
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Sync сбрасывает буферизованные записи. Ошибка sync для stdout
// на части платформ неустранима, поэтому она игнорируется.
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
