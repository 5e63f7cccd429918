// Package logger configures the process-wide zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zerolog.Logger from cfg and sets the package-global level.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output zerolog.ConsoleWriter
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		return zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger installs l as the package-level zerolog default logger.
func SetGlobalLogger(l zerolog.Logger) {
	zerolog.DefaultContextLogger = &l
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
