// Package xlog is a thin facade over go.uber.org/zap, shaped after
// erigon-lib/log/v3's key-value call style (Info(msg, "key", val, ...)).
// Components take a Logger explicitly at construction time; there is no
// package-level default logger.
package xlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the key-value structured logging interface every long-running
// component depends on.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a Logger named after component, writing leveled, human-readable
// output to stderr. A single process may construct several named Loggers
// (one per IndexGenerator instance, for example) rather than sharing a
// singleton.
func New(component string) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), zapcore.InfoLevel)
	l := zap.New(core).Sugar().Named(component)
	return &zapLogger{s: l}
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output.
func Nop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}
