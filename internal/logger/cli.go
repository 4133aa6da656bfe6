package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewCLILogger is used by the command layer to report fatal errors.
func NewCLILogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	return log
}
