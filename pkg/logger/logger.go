// Package logger adapts zap to the logging interfaces of third-party libraries.
package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronLogger satisfies cron.Logger on top of a zap logger.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger wraps base; a nil base discards everything.
func NewCronLogger(base *zap.Logger) *CronLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &CronLogger{sugar: base.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Info logs cron's routine messages at debug level; they fire on every tick.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Error logs job panics and scheduling failures.
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
