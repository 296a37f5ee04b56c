package util

import (
	"github.com/pion/logging"
)

// PionLoggerFactory routes pion's internal logs through the shared pterm
// logger so WebRTC diagnostics land in the same stream as everything else.
// Trace is folded into debug; pion's trace volume is far too high for a CLI.
type PionLoggerFactory struct{}

var _ logging.LoggerFactory = (*PionLoggerFactory)(nil)

// NewLogger returns a leveled logger for the given pion scope (e.g. "ice", "sctp").
func (f *PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{scope: scope}
}

type pionLogger struct {
	scope string
}

func (l *pionLogger) Trace(msg string) { LogDebug("[%s] %s", l.scope, msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) {
	LogDebug("[%s] "+format, append([]interface{}{l.scope}, args...)...)
}

func (l *pionLogger) Debug(msg string) { LogDebug("[%s] %s", l.scope, msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) {
	LogDebug("[%s] "+format, append([]interface{}{l.scope}, args...)...)
}

func (l *pionLogger) Info(msg string) { LogDebug("[%s] %s", l.scope, msg) }
func (l *pionLogger) Infof(format string, args ...interface{}) {
	LogDebug("[%s] "+format, append([]interface{}{l.scope}, args...)...)
}

func (l *pionLogger) Warn(msg string) { LogWarning("[%s] %s", l.scope, msg) }
func (l *pionLogger) Warnf(format string, args ...interface{}) {
	LogWarning("[%s] "+format, append([]interface{}{l.scope}, args...)...)
}

func (l *pionLogger) Error(msg string) { LogError("[%s] %s", l.scope, msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) {
	LogError("[%s] "+format, append([]interface{}{l.scope}, args...)...)
}
