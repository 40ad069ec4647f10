package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/hunters-journal/internal/applog"
	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/clients"
	"github.com/tinytelemetry/hunters-journal/internal/duckdb"
	"github.com/tinytelemetry/hunters-journal/internal/httpserver"
	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/notify"
	"github.com/tinytelemetry/hunters-journal/internal/service"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
)

// runServer starts the background service: catalog cache, notification
// scheduler, click routing, the socket RPC server and the optional HTTP API.
func runServer(cfg appConfig) (err error) {
	logger, syncLogger, err := applog.New(applog.Config{
		Name:  "journald",
		Dir:   cfg.LogDir,
		Level: cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer syncLogger()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	prefs, err := kv.Open(cfg.KVPath)
	if err != nil {
		return fmt.Errorf("failed to open kv store: %w", err)
	}

	fetcher := catalog.NewFetcher(catalog.FetcherConfig{
		Mode:              catalog.Mode(cfg.SourceMode),
		BlobURL:           cfg.BlobURL,
		APIBaseURL:        cfg.APIBaseURL,
		DetailConcurrency: cfg.DetailConcurrency,
		Timeout:           cfg.FetchTimeout,
	}, nil)
	source := catalog.NewCachedSource(fetcher, store, model.BlobCacheName, logger.Named("catalog"))
	images := catalog.NewImageCache(cfg.ImageDir, fetcher, store, logger.Named("images"))

	// Expired cache rows take their image files with them.
	retentionCleaner := duckdb.NewRetentionCleaner(store, logger.Named("retention"), duckdb.RetentionConfig{
		NotificationDays: cfg.NotificationDays,
		Policies: []duckdb.CachePolicy{
			{Cache: model.BlobCacheName, MaxAge: cfg.ListCacheMaxAge, MaxEntries: cfg.ListCacheMaxEntries},
			{Cache: model.ImageCacheName, MaxAge: cfg.ImageCacheMaxAge, MaxEntries: cfg.ImageCacheMaxEntries},
		},
		OnExpire: func(cache string, hashes []string) {
			if cache == model.ImageCacheName {
				images.Remove(hashes)
			}
		},
	})
	defer retentionCleaner.Stop()

	registry := clients.NewRegistry(clients.Config{
		Origin:      socketrpc.Origin(cfg.SocketPath),
		OpenCommand: cfg.OpenCommand,
	}, logger.Named("clients"))

	deliverer := notify.NewDesktopDeliverer(notify.DesktopConfig{
		Command:     cfg.NotifyCommand,
		DefaultIcon: model.DefaultIcon,
	}, images, func(url string) {
		if err := registry.Open(url); err != nil {
			logger.Warn("notification click not routed", zap.String("url", url), zap.Error(err))
		}
	}, logger.Named("notify"))
	defer deliverer.Close()
	if !deliverer.Available() {
		logger.Warn("notify command not found, deliveries will fail", zap.String("command", cfg.NotifyCommand))
	}

	var registrar notify.PeriodicRegistrar
	if cfg.PeriodicEnabled {
		registrar = notify.NewSystemdRegistrar(notify.SystemdConfig{
			Executable: periodicExecutable(cfg.PeriodicExecutable),
		})
	}

	scheduler := notify.NewScheduler(notify.Config{
		Interval:     cfg.NotificationInterval,
		WelcomeDelay: cfg.WelcomeDelay,
		Tag:          model.PeriodicSyncTag,
	}, source, deliverer, registrar, prefs, store, logger.Named("scheduler"))
	defer scheduler.Stop()
	if scheduler.Resume() {
		logger.Info("interval fallback resumed")
	}

	svc := service.New(source, scheduler, registry, store)

	// Start HTTP API server if enabled
	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, svc, logger.Named("http"))
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer func() {
			err = multierr.Append(err, apiServer.Stop())
		}()
	}

	// Start socket RPC server for the view and the CLI
	sockServer := socketrpc.NewServer(cfg.SocketPath, svc, logger.Named("rpc"))
	if err := sockServer.Start(); err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	defer sockServer.Stop()

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		logger.Info("shutdown requested")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, registrar != nil, scheduler.Status().Mode)
	logger.Info("journald started",
		zap.String("version", version),
		zap.String("socket", cfg.SocketPath),
		zap.Bool("api", cfg.APIEnabled),
		zap.String("source_mode", cfg.SourceMode),
	)

	g, gctx := errgroup.WithContext(ctx)

	// Warm the list cache so the first view and the first cycle are local.
	g.Go(func() error {
		warmCtx, warmCancel := context.WithTimeout(gctx, cfg.FetchTimeout)
		defer warmCancel()
		list, err := source.ListEnemies(warmCtx)
		if err != nil {
			logger.Warn("initial catalog load failed", zap.Error(err))
			return nil
		}
		logger.Info("catalog ready", zap.Int("enemies", len(list)))
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("errgroup exited with error", zap.Error(err))
	}

	signal.Stop(sigCh)
	logger.Info("journald stopped")
	return nil
}

// periodicExecutable resolves the binary the periodic timer runs. An empty
// setting prefers a journal binary next to this one, then one on PATH.
func periodicExecutable(configured string) string {
	if configured != "" {
		return configured
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "journal")
		if _, err := os.Stat(sibling); err == nil {
			return sibling
		}
	}
	if path, err := exec.LookPath("journal"); err == nil {
		return path
	}
	return "journal"
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func printStartupBanner(cfg appConfig, periodic bool, mode model.TriggerMode) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦ ╦╦ ╦╔╗╔╔╦╗╔═╗╦═╗╔═╗   ╦╔═╗╦ ╦╦═╗╔╗╔╔═╗╦
    ╠═╣║ ║║║║ ║ ║╣ ╠╦╝╚═╗   ║║ ║║ ║╠╦╝║║║╠═╣║
    ╩ ╩╚═╝╝╚╝ ╩ ╚═╝╩╚═╚═╝  ╚╝╚═╝╚═╝╩╚═╝╚╝╩ ╩╩═╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Catalog"))
	lines = append(lines, "")
	source := cfg.BlobURL
	if catalog.Mode(cfg.SourceMode) == catalog.ModeAPI {
		source = cfg.APIBaseURL
	}
	lines = append(lines, fmt.Sprintf("    %s  Source         %s", check, dim.Render(cfg.SourceMode+" "+source)))
	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	lines = append(lines, fmt.Sprintf("    %s  Images         %s", check, dim.Render(shortenPath(cfg.ImageDir))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Notifications"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Interval       %s", check, dim.Render(cfg.NotificationInterval.String())))
	if periodic {
		lines = append(lines, fmt.Sprintf("    %s  Periodic Wake  %s", check, dim.Render("systemd timer")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Periodic Wake  %s", dot, dim.Render("disabled")))
	}
	if mode == model.TriggerInterval {
		lines = append(lines, fmt.Sprintf("    %s  Fallback       %s", check, dim.Render("running")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Fallback       %s", dot, dim.Render("idle")))
	}

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
