package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger. APP_ENV=dev (or development) uses a
// human-friendly console writer; anything else emits JSON. LOG_LEVEL narrows
// output (debug|info|warn|error), defaulting to info.
func NewLogger(env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}
	l := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return l
}
