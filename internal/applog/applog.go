// Package applog builds the zap logger shared by the journal binaries.
package applog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects where logs go and at what level.
type Config struct {
	// Name is the log file stem, typically the binary name.
	Name string
	// Dir defaults to ~/.local/state/hunters-journal.
	Dir string
	// Level is a zap level name ("debug", "info", ...). Empty means info.
	Level string
	// Stderr also writes to standard error. The TUI leaves it off because
	// the terminal belongs to bubbletea.
	Stderr bool
}

// DefaultDir returns the state directory used for logs.
func DefaultDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hunters-journal")
	}
	return filepath.Join(home, ".local", "state", "hunters-journal")
}

// New builds a JSON logger appending to <Dir>/<Name>.log. The returned
// cleanup syncs the logger.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("applog: level %q: %w", cfg.Level, err)
		}
	}

	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("applog: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("applog: mkdir: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "journal"
	}

	config := zap.NewProductionConfig()
	config.Level = level
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{filepath.Join(dir, name+".log")}
	config.ErrorOutputPaths = []string{filepath.Join(dir, name+".log")}
	if cfg.Stderr {
		config.OutputPaths = append(config.OutputPaths, "stderr")
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, "stderr")
	}

	logger, err := config.Build(zap.Fields(zap.String("app", name)))
	if err != nil {
		return nil, nil, fmt.Errorf("applog: build: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}
