package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/shadow/internal/config"
)

// setupLog points the default logger at a file, so log output never draws
// over the TUI. SHADOW_LOG_FILE overrides the location.
func setupLog(cfg *config.Config, debug bool) (func() error, error) {
	log.SetOutput(io.Discard)

	level := log.InfoLevel
	if cfg != nil {
		if l, err := log.ParseLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	path := os.Getenv("SHADOW_LOG_FILE")
	if path == "" {
		if cfg == nil {
			return func() error { return nil }, nil
		}
		path = cfg.LogFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	return f.Close, nil
}
