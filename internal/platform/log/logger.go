package log

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// NewLogger constructs a logrus logger configured with JSON output and the provided log level.
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)

	if err := applyLevel(logger, level); err != nil {
		return nil, err
	}
	return logger, nil
}

// NewConsoleLogger constructs a human-readable logger for command line use. Output goes
// to out so command results on stdout stay parseable.
func NewConsoleLogger(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})

	if err := applyLevel(logger, level); err != nil {
		return nil, err
	}
	return logger, nil
}

// WithComponent returns a child logger entry tagged with the component name.
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

func applyLevel(logger *logrus.Logger, level string) error {
	logger.SetLevel(logrus.InfoLevel)
	if level == "" {
		return nil
	}

	parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return eris.Wrapf(err, "invalid log level: %s", level)
	}

	logger.SetLevel(parsedLevel)
	return nil
}
