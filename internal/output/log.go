package output

import (
	"io"

	"github.com/sirupsen/logrus"
)

type Option func(l *logrus.Logger)

func WithLevel(level string) Option {
	return func(logger *logrus.Logger) {
		l, err := logrus.ParseLevel(level)
		if err != nil {
			l = logrus.WarnLevel
		}
		logger.SetLevel(l)
	}
}

func WithOutput(output io.Writer) Option {
	return func(logger *logrus.Logger) {
		logger.SetOutput(output)
	}
}

// NewJSONLogger returns a logrus logger writing JSON lines.
// It logs at the warn level unless WithLevel says otherwise, so that the
// standard error stays free of noise on the default path.
func NewJSONLogger(opts ...Option) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	for _, f := range opts {
		f(logger)
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		DisableTimestamp:  false,
		DisableHTMLEscape: false,
		PrettyPrint:       false,
	})

	return logger
}
