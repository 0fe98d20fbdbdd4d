// Package logger holds the process-wide diagnostic logger. Progress output
// and the final summary are written to stdout separately; this logger only
// carries diagnostics and goes to stderr.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is shared by every package.
var Logger = newLogger(os.Stderr, log.InfoLevel)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.New(w)
	l.SetTimeFormat("15:04:05")
	l.SetReportTimestamp(true)
	l.SetLevel(level)
	return l
}

// Configure resets Logger. verbose wins over REPBENCH_LOG_LEVEL.
func Configure(w io.Writer, verbose bool) {
	level := ParseLevel(os.Getenv("REPBENCH_LOG_LEVEL"))
	if verbose {
		level = log.DebugLevel
	}
	Logger = newLogger(w, level)
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// With returns a child logger tagged with prefix.
func With(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}
