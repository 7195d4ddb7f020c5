// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects level, format and destinations.
type Config struct {
	Level   string `yaml:"level"`  // debug, info, warn, error
	Format  string `yaml:"format"` // text, json
	File    string `yaml:"file"`   // appended to when set
	Console bool   `yaml:"console"`
}

// Levels lists the accepted Config.Level values.
var Levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to the configured file and, when enabled, to
// stderr. The returned closer releases the file; it is never nil.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if cfg.Console {
		writers = append(writers, console)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
