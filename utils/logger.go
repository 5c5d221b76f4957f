package utils

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"io"
	"os"
)

// NewLogger returns a text logger on stderr at the named level ("debug",
// "info", "warn", ...).
func NewLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// DiscardLogger drops everything. It is the default for library callers
// that do not pass a logger.
func DiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
