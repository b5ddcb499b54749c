package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a new logger based on the configuration. Every entry
// carries the service name so logs from the API and the seeder can be told
// apart once aggregated.
func NewLogger(cfg LoggerConfig, service string) zerolog.Logger {
	return newLogger(cfg, service, os.Stdout)
}

func newLogger(cfg LoggerConfig, service string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}
