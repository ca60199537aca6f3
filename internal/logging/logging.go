package logging

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New creates the process logger writing to stderr so stdout stays
// clean for JSON results.
func New(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          "signalguard",
	})
}

// Discard returns a logger that drops everything, for tests and for
// library consumers that bring their own logging.
func Discard() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel + 1)
	return logger
}
