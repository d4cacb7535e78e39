package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// LogLevelEnv overrides the level derived from the verbose flag.
const LogLevelEnv = "AUTODISPLAY_LOG_LEVEL"

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// LevelFor resolves the log level from the verbose count and the
// environment. lookup is normally os.LookupEnv.
func LevelFor(verbose int, lookup func(string) (string, bool)) (slog.Level, error) {
	level := slog.LevelInfo
	if verbose > 0 {
		level = slog.LevelDebug
	}

	if value, ok := lookup(LogLevelEnv); ok && value != "" {
		parsed, err := ParseLevel(value)
		if err != nil {
			return level, fmt.Errorf("%s: %w", LogLevelEnv, err)
		}
		level = parsed
	}
	return level, nil
}

// NewLogger returns a tint logger writing to w. Colour is only used when
// w is a terminal.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	})
	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetupLogging installs the default logger on stderr and returns it
func SetupLogging(verbose int) *slog.Logger {
	level, err := LevelFor(verbose, os.LookupEnv)
	logger := NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	if err != nil {
		logger.Warn(fmt.Sprintf("Ignoring log level override: %v", err))
	}
	return logger
}
