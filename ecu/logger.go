package ecu

import (
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface the bus uses: a small
// leveled interface (Debug/Info/Warn/Error plus a frame tracer) backed by
// logrus fields rather than raw Printf strings.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	DebugFrame(direction string, tick int, f Frame)
}

// LogrusLogger adapts a *logrus.Logger to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l, tagging every record with the given component
// name (e.g. "bus", "attacker").
func NewLogrusLogger(l *logrus.Logger, component string) *LogrusLogger {
	return &LogrusLogger{entry: l.WithField("component", component)}
}

func (l *LogrusLogger) Debug(format string, v ...interface{}) { l.entry.Debugf(format, v...) }
func (l *LogrusLogger) Info(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *LogrusLogger) Warn(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *LogrusLogger) Error(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

// DebugFrame logs a simulated frame slot at debug level.
func (l *LogrusLogger) DebugFrame(direction string, tick int, f Frame) {
	l.entry.WithFields(logrus.Fields{
		"tick":      tick,
		"direction": direction,
		"frame_id":  f.ID,
		"origin":    f.Origin,
		"phase":     f.Phase.String(),
	}).Debug("frame slot")
}

// NopLogger discards everything; used by tests and by callers that don't
// want per-tick log volume.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})  {}
func (NopLogger) Info(string, ...interface{})   {}
func (NopLogger) Warn(string, ...interface{})   {}
func (NopLogger) Error(string, ...interface{})  {}
func (NopLogger) DebugFrame(string, int, Frame) {}
