package logsvc

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/grupka/grupka/core"
)

// zapLogger is a core.Logger without error reporting.
type zapLogger struct {
	*RollbarLogger
}

// NewTestLogger returns a core.Logger writing to the test log.
func NewTestLogger(t testing.TB) core.Logger {
	return &zapLogger{&RollbarLogger{zl: zaptest.NewLogger(t)}}
}

// NewNopLogger returns a core.Logger that discards everything.
func NewNopLogger() core.Logger {
	return &zapLogger{&RollbarLogger{zl: zap.NewNop()}}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) {
	_, fields := l.prepare(msg, args)
	l.zl.Debug(msg, fields...)
}

func (l *zapLogger) Info(msg string, args ...interface{}) {
	_, fields := l.prepare(msg, args)
	l.zl.Info(msg, fields...)
}

func (l *zapLogger) Warn(msg string, args ...interface{}) {
	_, fields := l.prepare(msg, args)
	l.zl.Warn(msg, fields...)
}

func (l *zapLogger) Error(msg string, args ...interface{}) {
	_, fields := l.prepare(msg, args)
	l.zl.Error(msg, fields...)
}

func (l *zapLogger) Fatal(msg string, args ...interface{}) {
	_, fields := l.prepare(msg, args)
	l.zl.Fatal(msg, fields...)
}
