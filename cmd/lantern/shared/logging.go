package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger returns a logger writing to stderr at the given level.
func SetupLogger(level string) (*log.Logger, error) {
	return SetupLoggerTo(os.Stderr, level)
}

// SetupLoggerTo returns a logger writing to w at the given level.
func SetupLoggerTo(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}), nil
}
