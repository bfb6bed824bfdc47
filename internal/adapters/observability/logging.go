package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer and
// debug level; LOG_LEVEL overrides the level either way.
func NewLogger(env, level string) zerolog.Logger {
	dev := env == "dev" || env == "development"

	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if dev {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}

	lvl := zerolog.InfoLevel
	if dev {
		lvl = zerolog.DebugLevel
	}
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	return l.Level(lvl)
}
