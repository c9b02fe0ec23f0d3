package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
)

// RollbarLogger writes structured logs with zap and reports them to Rollbar.
type RollbarLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{zl: zl}
}

// NewZap builds the zap logger matching the configuration.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.InitialFields = map[string]interface{}{"app": conf.AppName, "build": conf.Build, "env": conf.Env}
	return zc.Build()
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Zap returns the underlying zap logger.
func (l *RollbarLogger) Zap() *zap.Logger {
	return l.zl
}

// prepare splits args into rollbar args and zap fields.
// expected fmt: msg | error, map[string]interface{}, user.User
func (l *RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []zap.Field) {
	var usrSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	fields := make([]zap.Field, 0, len(args))

	for i, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(a.ID, a.DisplayName, a.Email)
				fields = append(fields, zap.String("user_id", a.ID))
				usrSet = true
			}
			continue
		case error:
			fields = append(fields, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
		rbArgs = append(rbArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, fields
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.zl.Debug(msg, fields...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.zl.Info(msg, fields...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.zl.Warn(msg, fields...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.zl.Error(msg, fields...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	l.zl.Fatal(msg, fields...)
}

// Close flushes buffered logs and pending Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Close()
	_ = l.zl.Sync()
}
