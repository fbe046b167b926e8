package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const timeFormat = time.RFC3339

// New constructs a zerolog logger for the relay. Development environments get
// human readable console output; everything else emits JSON so the access log
// can be shipped as-is.
func New(env, level string, writers ...io.Writer) (*zerolog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.TimeFieldFormat = timeFormat
	zerolog.DurationFieldUnit = time.Millisecond

	var output io.Writer
	switch {
	case len(writers) > 0:
		output = io.MultiWriter(writers...)
	case isDevelopment(env):
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	default:
		output = os.Stdout
	}

	log := zerolog.New(output).With().Timestamp().Logger().Level(lvl)
	return &log, nil
}

// Component returns a child logger tagged with the component name.
func Component(log *zerolog.Logger, name string) zerolog.Logger {
	if log == nil {
		return zerolog.Nop()
	}
	return log.With().Str("component", name).Logger()
}

func isDevelopment(env string) bool {
	env = strings.TrimSpace(strings.ToLower(env))
	return env == "development" || env == "dev" || env == "local"
}

func parseLevel(level string) (zerolog.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(level))
}
