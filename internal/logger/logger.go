package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every log line.
const ServiceName = "learnhub"

// Setup initializes the global zerolog level and returns the process logger
// writing to stdout.
//   - level: trace, debug, info, warn, error, fatal, panic
//   - format: "pretty" for human-readable dev output, anything else for JSON
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return New(os.Stdout, format)
}

// New builds a logger on top of w without touching global state.
func New(w io.Writer, format string) zerolog.Logger {
	if format == "pretty" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", ServiceName).
		Caller().
		Logger()
}
