package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured JSON logger. Level should be a
// valid slog level string: DEBUG, INFO, WARN, ERROR. Unrecognized values
// default to INFO.
func New(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	})).With("service", "rankpilot")
}
