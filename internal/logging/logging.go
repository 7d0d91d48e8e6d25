// Package logging configures the global zerolog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/recipeprice/backend/config"
)

// Setup points the global logger at console, or at a rotating file when cfg.File is
// set, and makes it the default for zerolog.Ctx lookups
func Setup(cfg config.LogConfig, console io.Writer) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var out io.Writer
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
		}
	} else {
		if console == nil {
			console = os.Stderr
		}
		out = zerolog.ConsoleWriter{Out: console}
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	return nil
}

// WithRunID returns a context whose logger tags every event with a fresh run_id
func WithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	logger := log.With().Str("run_id", id).Logger()
	return logger.WithContext(ctx), id
}
