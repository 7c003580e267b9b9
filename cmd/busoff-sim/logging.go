package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger builds a logrus.Logger with plain text output, timestamps
// dropped when running under systemd (INVOCATION_ID set), and level taken
// from the -log flag.
func newLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)

	formatter := &logrus.TextFormatter{FullTimestamp: true}
	if os.Getenv("INVOCATION_ID") != "" {
		formatter.DisableTimestamp = true
	}
	logger.SetFormatter(formatter)

	return logger
}

func parseLogLevel(n int) logrus.Level {
	switch {
	case n <= 0:
		return logrus.PanicLevel
	case n == 1:
		return logrus.ErrorLevel
	case n == 2:
		return logrus.WarnLevel
	case n == 3:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
