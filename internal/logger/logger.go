// Package logger builds the process-wide slog logger on top of a zap core.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a slog.Logger that writes through zap, plus the zap logger itself
// so the caller can Sync it on shutdown. format is "json" or "console".
func New(level, format string) (*slog.Logger, *zap.Logger) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, "console") {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(ParseLevel(level)))
	zl := zap.New(core)
	return slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true))), zl
}

// Setup installs the logger as the slog default and returns a flush func.
func Setup(level, format string) func() {
	l, zl := New(level, format)
	slog.SetDefault(l)
	return func() { _ = zl.Sync() }
}

// ParseLevel maps LOG_LEVEL values onto zap levels; unknown values mean INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
