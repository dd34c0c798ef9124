package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

// Print returns a log entry carrying the given fields. A nil fields map is
// allowed and yields a plain entry.
func Print(fields logrus.Fields) *logrus.Entry {
	if fields == nil {
		return logger.WithFields(logrus.Fields{})
	}
	return logger.WithFields(fields)
}
