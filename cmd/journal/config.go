package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/hunters-journal/internal/applog"
	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
)

// cliConfig holds only view and CLI configuration. It shares the config
// file with journald; keys it does not know are ignored.
type cliConfig struct {
	SocketPath       string        `mapstructure:"socket-path"`
	KVPath           string        `mapstructure:"kv-path"`
	SourceMode       string        `mapstructure:"source-mode"`
	BlobURL          string        `mapstructure:"blob-url"`
	APIBaseURL       string        `mapstructure:"api-base-url"`
	FetchTimeout     time.Duration `mapstructure:"fetch-timeout"`
	LocalCacheMaxAge time.Duration `mapstructure:"local-cache-max-age"`
	NarrowWidth      int           `mapstructure:"narrow-width"`
	MoveCooldown     time.Duration `mapstructure:"move-cooldown"`
	FrameInterval    time.Duration `mapstructure:"frame-interval"`
	GamepadEnabled   bool          `mapstructure:"gamepad-enabled"`
	GamepadDir       string        `mapstructure:"gamepad-dir"`
	Bell             bool          `mapstructure:"bell"`
	LogLevel         string        `mapstructure:"log-level"`
	LogDir           string        `mapstructure:"log-dir"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	v := viper.New()
	v.SetEnvPrefix("JOURNAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("kv-path", kv.DefaultDir())
	v.SetDefault("source-mode", string(catalog.ModeBlob))
	v.SetDefault("blob-url", model.DefaultBlobURL)
	v.SetDefault("api-base-url", model.DefaultAPIBaseURL)
	v.SetDefault("fetch-timeout", 30*time.Second)
	v.SetDefault("local-cache-max-age", model.LocalCacheExpiration)
	v.SetDefault("narrow-width", model.DefaultNarrowWidth)
	v.SetDefault("move-cooldown", model.MoveCooldown)
	v.SetDefault("frame-interval", model.FrameInterval)
	v.SetDefault("gamepad-enabled", true)
	v.SetDefault("gamepad-dir", "/dev/input")
	v.SetDefault("bell", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-dir", applog.DefaultDir())

	if configPath == "" {
		configPath = filepath.Join("~", ".config", "hunters-journal", "config.yml")
	}
	configPath, err := homedir.Expand(configPath)
	if err != nil {
		return cfg, fmt.Errorf("expanding config path: %w", err)
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	switch catalog.Mode(cfg.SourceMode) {
	case catalog.ModeBlob, catalog.ModeAPI:
	default:
		return cfg, fmt.Errorf("invalid source-mode %q", cfg.SourceMode)
	}

	for _, p := range []*string{&cfg.SocketPath, &cfg.KVPath, &cfg.LogDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return cfg, fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}

	return cfg, nil
}

func (c cliConfig) fetcherConfig() catalog.FetcherConfig {
	return catalog.FetcherConfig{
		Mode:       catalog.Mode(c.SourceMode),
		BlobURL:    c.BlobURL,
		APIBaseURL: c.APIBaseURL,
		Timeout:    c.FetchTimeout,
	}
}
