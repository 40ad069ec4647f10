package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
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

const (
	defaultBindHost             = "127.0.0.1"
	defaultAPIPort              = 3000
	defaultQueryTimeout         = 30 * time.Second
	defaultFetchTimeout         = 30 * time.Second
	defaultDetailConcurrency    = 8
	defaultNotificationDays     = 30 // days, 0 = keep forever
	defaultListCacheMaxAge      = 30 * 24 * time.Hour
	defaultListCacheMaxEntries  = 5
	defaultImageCacheMaxAge     = 60 * 24 * time.Hour
	defaultImageCacheMaxEntries = 300
	defaultNotifyCommand        = "notify-send"
)

var defaultOpenCommand = []string{"x-terminal-emulator", "-e", "journal", "ui", "--link"}

// appConfig is the daemon's runtime configuration.
type appConfig struct {
	DBPath               string        `mapstructure:"db-path"`
	QueryTimeout         time.Duration `mapstructure:"query-timeout"`
	KVPath               string        `mapstructure:"kv-path"`
	ImageDir             string        `mapstructure:"image-dir"`
	SocketPath           string        `mapstructure:"socket-path"`
	APIEnabled           bool          `mapstructure:"api-enabled"`
	APIPort              int           `mapstructure:"api-port"`
	APIAddr              string        `mapstructure:"api-addr"`
	SourceMode           string        `mapstructure:"source-mode"`
	BlobURL              string        `mapstructure:"blob-url"`
	APIBaseURL           string        `mapstructure:"api-base-url"`
	DetailConcurrency    int           `mapstructure:"detail-concurrency"`
	FetchTimeout         time.Duration `mapstructure:"fetch-timeout"`
	NotificationInterval time.Duration `mapstructure:"notification-interval"`
	WelcomeDelay         time.Duration `mapstructure:"welcome-delay"`
	PeriodicEnabled      bool          `mapstructure:"periodic-enabled"`
	PeriodicExecutable   string        `mapstructure:"periodic-executable"`
	NotifyCommand        string        `mapstructure:"notify-command"`
	OpenCommand          []string      `mapstructure:"open-command"`
	NotificationDays     int           `mapstructure:"notification-retention"`
	ListCacheMaxAge      time.Duration `mapstructure:"list-cache-max-age"`
	ListCacheMaxEntries  int           `mapstructure:"list-cache-max-entries"`
	ImageCacheMaxAge     time.Duration `mapstructure:"image-cache-max-age"`
	ImageCacheMaxEntries int           `mapstructure:"image-cache-max-entries"`
	LogLevel             string        `mapstructure:"log-level"`
	LogDir               string        `mapstructure:"log-dir"`
	ConfigPath           string        `mapstructure:"-"` // not from config file
}

func defaultConfigPath() string {
	return filepath.Join("~", ".config", "hunters-journal", "config.yml")
}

// loadConfig reads defaults, then the config file, then JOURNAL_* env vars.
// bind may attach command-line flags to v before the file is read.
func loadConfig(configPath string, bind func(v *viper.Viper) error) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("JOURNAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("db-path", filepath.Join("~", ".local", "share", "hunters-journal", "journald.duckdb"))
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("kv-path", kv.DefaultDir())
	v.SetDefault("image-dir", filepath.Join("~", ".cache", "hunters-journal", "images"))
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("source-mode", string(catalog.ModeBlob))
	v.SetDefault("blob-url", model.DefaultBlobURL)
	v.SetDefault("api-base-url", model.DefaultAPIBaseURL)
	v.SetDefault("detail-concurrency", defaultDetailConcurrency)
	v.SetDefault("fetch-timeout", defaultFetchTimeout)
	v.SetDefault("notification-interval", model.NotificationInterval)
	v.SetDefault("welcome-delay", model.WelcomeDelay)
	v.SetDefault("periodic-enabled", true)
	v.SetDefault("notify-command", defaultNotifyCommand)
	v.SetDefault("open-command", defaultOpenCommand)
	v.SetDefault("notification-retention", defaultNotificationDays)
	v.SetDefault("list-cache-max-age", defaultListCacheMaxAge)
	v.SetDefault("list-cache-max-entries", defaultListCacheMaxEntries)
	v.SetDefault("image-cache-max-age", defaultImageCacheMaxAge)
	v.SetDefault("image-cache-max-entries", defaultImageCacheMaxEntries)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-dir", applog.DefaultDir())

	if bind != nil {
		if err := bind(v); err != nil {
			return cfg, err
		}
	}

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	configPath, err := homedir.Expand(configPath)
	if err != nil {
		return cfg, fmt.Errorf("expanding config path: %w", err)
	}
	v.SetConfigFile(configPath)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		fileLoaded = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if fileLoaded {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	switch catalog.Mode(cfg.SourceMode) {
	case catalog.ModeBlob, catalog.ModeAPI:
	default:
		return cfg, fmt.Errorf("invalid source-mode %q: want %q or %q", cfg.SourceMode, catalog.ModeBlob, catalog.ModeAPI)
	}
	if cfg.NotificationInterval <= 0 {
		return cfg, fmt.Errorf("invalid notification-interval: %s", cfg.NotificationInterval)
	}

	for _, p := range []*string{&cfg.DBPath, &cfg.KVPath, &cfg.ImageDir, &cfg.SocketPath, &cfg.LogDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return cfg, fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}
