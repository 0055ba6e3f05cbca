package log

import (
	"io"
	"os"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/sirupsen/logrus"
)

// Build information, set with -ldflags.
var (
	Version = "unversioned"
	Commit  = ""
)

// NewLogger returns a new logger writing to stderr, or to the configured log file
func NewLogger(c config.LogConfig) (*logrus.Entry, error) {
	var out io.Writer = os.Stderr
	if c.File != "" {
		file, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		out = file
	}

	return newLogger(c, out), nil
}

func newLogger(c config.LogConfig, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(getLogLevel(c.Level))

	if c.Format == config.LogFormatJSON {
		log.Formatter = &logrus.JSONFormatter{}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	return log.WithFields(logrus.Fields{
		"version": Version,
		"commit":  Commit,
	})
}

// getLogLevel prefers LOG_LEVEL from the environment over the configured level.
func getLogLevel(configured string) logrus.Level {
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		return level
	}
	if level, err := logrus.ParseLevel(configured); err == nil {
		return level
	}
	return logrus.InfoLevel
}
