package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quotaflow-go/internal/config"

	log "github.com/sirupsen/logrus"
)

var (
	setupMu sync.Mutex
	logFile *os.File
)

// Setup points the global logrus logger at stdout (plus cfg.Logging.File when
// set) with the configured level and formatter. Each call replaces the
// previous setup and closes the old log file; Setup(nil) restores defaults.
func Setup(cfg *config.Config) error {
	var lc config.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}

	level, err := resolveLevel(lc)
	if err != nil {
		return err
	}

	setupMu.Lock()
	defer setupMu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	var out io.Writer = os.Stdout
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(lc.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}

	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(newFormatter(lc))
	return nil
}

func resolveLevel(lc config.LoggingConfig) (log.Level, error) {
	if lc.Level != "" {
		lvl, err := log.ParseLevel(lc.Level)
		if err != nil {
			return log.InfoLevel, fmt.Errorf("logging.level: %w", err)
		}
		return lvl, nil
	}
	if lc.Debug {
		return log.DebugLevel, nil
	}
	return log.InfoLevel, nil
}

func newFormatter(lc config.LoggingConfig) log.Formatter {
	format := strings.ToLower(lc.Format)
	if format == "" && lc.Debug {
		format = "text"
	}
	if format == "text" {
		return &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano}
	}
	return &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
}
