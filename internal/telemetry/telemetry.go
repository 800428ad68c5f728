// Package telemetry wraps go.uber.org/zap the way the rest of the
// retrieval pack configures it: a single process-wide *zap.Logger, built
// once from a verbosity level, that every other package takes a child
// logger from via With.
package telemetry

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the teacher's -v flag scale (0=off .. 4=trace) instead of
// zap's own level type, so cmd/quince's flag parsing doesn't need to know
// about zapcore.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelDebug, LevelTrace:
		return zapcore.DebugLevel
	default:
		return zapcore.FatalLevel + 1 // above any level zap emits: effectively off
	}
}

// New builds the process-wide logger at the given verbosity, writing
// human-readable console output (matching the teacher's plain-text log
// lines rather than structured JSON, since quince is a CLI tool, not a
// service with a log pipeline behind it).
func New(level Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level.zapLevel(),
	)
	return zap.New(core)
}
