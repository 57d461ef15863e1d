// Package logger provides the process-wide structured logger. Every
// package that needs to log calls GetLogger() rather than holding its own
// *logrus.Logger, so a single Init call at startup configures output for
// the whole process.
package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// Init configures the package-level logger. level is parsed with
// logrus.ParseLevel; an unrecognized level falls back to info rather than
// failing startup.
func Init(level string) {
	once.Do(func() {
		log = logrus.New()
		log.SetOutput(os.Stdout)
		log.SetFormatter(&logrus.JSONFormatter{})
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
}

// GetLogger returns the package-level logger, initializing it at info
// level if Init has not been called yet (useful in tests).
func GetLogger() *logrus.Logger {
	if log == nil {
		Init("info")
	}
	return log
}
