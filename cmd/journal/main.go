package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/applog"
	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions is shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type rootOptions struct {
	configPath string
	socketPath string

	cfg     cliConfig
	logger  *zap.Logger
	cleanup func()
}

// New builds the journal command tree.
func New() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "Browse the Hunter's Journal from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			opts.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.config/hunters-journal/config.yml)")
	cmd.PersistentFlags().StringVar(&opts.socketPath, "socket", "", "override socket path to connect to journald")

	addUI(cmd, opts)
	addList(cmd, opts)
	addShow(cmd, opts)
	addNotify(cmd, opts)
	addStartNotifications(cmd, opts)
	addEnableNotifications(cmd, opts)
	addWatch(cmd, opts)
	addStatus(cmd, opts)
	addVersion(cmd)
	return cmd
}

func (o *rootOptions) setup() error {
	cfg, err := loadCLIConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.socketPath != "" {
		cfg.SocketPath = o.socketPath
	}
	o.cfg = cfg

	logger, cleanup, err := applog.New(applog.Config{Name: "journal", Dir: cfg.LogDir, Level: cfg.LogLevel})
	if err != nil {
		// The CLI stays usable without a log file.
		logger, cleanup = zap.NewNop(), func() {}
	}
	o.logger = logger
	o.cleanup = cleanup
	return nil
}

func (o *rootOptions) close() {
	if o.cleanup != nil {
		o.cleanup()
	}
}

// dial connects to journald. Callers decide whether a missing daemon is
// fatal.
func (o *rootOptions) dial() (*socketrpc.Client, error) {
	client, err := socketrpc.Dial(o.cfg.SocketPath)
	if err != nil {
		o.logger.Debug("journald unavailable", zap.String("socket", o.cfg.SocketPath), zap.Error(err))
		return nil, err
	}
	return client, nil
}

func (o *rootOptions) requireDaemon() (*socketrpc.Client, error) {
	client, err := o.dial()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to journald at %s: %w\nIs the background service running? Start it with: journald", o.cfg.SocketPath, err)
	}
	return client, nil
}

// loadEnemies resolves the list the same way the view does: a fresh local
// copy, then journald, then a direct fetch.
func (o *rootOptions) loadEnemies(ctx context.Context, prefs *kv.Store) []model.Enemy {
	var sources []model.EnemySource
	if client, err := o.dial(); err == nil {
		defer client.Close()
		sources = append(sources, client)
	}
	sources = append(sources, catalog.NewFetcher(o.cfg.fetcherConfig(), nil))

	loader := catalog.NewLoader(prefs, o.cfg.LocalCacheMaxAge, o.logger.Named("loader"), sources...)
	return loader.Load(ctx)
}
