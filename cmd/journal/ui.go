package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/gamepad"
	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
	"github.com/tinytelemetry/hunters-journal/internal/tui"
)

func addUI(topLevel *cobra.Command, opts *rootOptions) {
	var link string
	var noGamepad bool

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive journal.",
		Example: `
journal ui
journal ui --link "/?enemy=moss-mother"
`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if noGamepad {
				opts.cfg.GamepadEnabled = false
			}
			return runUI(opts, link)
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "deep link to open, e.g. /?enemy=<slug>")
	cmd.Flags().BoolVar(&noGamepad, "no-gamepad", false, "do not read joystick devices")

	topLevel.AddCommand(cmd)
}

func runUI(opts *rootOptions, link string) error {
	cfg := opts.cfg
	logger := opts.logger

	prefs, err := kv.Open(cfg.KVPath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}

	sources := []model.EnemySource{}
	var daemon tui.Daemon
	origin := socketrpc.Origin(cfg.SocketPath)
	if client, err := opts.dial(); err == nil {
		defer client.Close()
		daemon = client
		sources = append(sources, client)
	} else {
		logger.Info("running without journald", zap.Error(err))
	}
	sources = append(sources, catalog.NewFetcher(cfg.fetcherConfig(), nil))
	loader := catalog.NewLoader(prefs, cfg.LocalCacheMaxAge, logger.Named("loader"), sources...)

	var cue navigator.Cue = navigator.NopCue{}
	if cfg.Bell {
		cue = navigator.BellCue{W: os.Stderr}
	}
	selection := navigator.NewSelection(prefs, cue, logger.Named("selection"))

	var device tui.Device
	if cfg.GamepadEnabled {
		js := gamepad.New(gamepad.Config{Dir: cfg.GamepadDir}, logger.Named("gamepad"))
		js.Start()
		defer js.Stop()
		device = js
	}

	journal := tui.NewJournalPage(tui.JournalConfig{
		Loader:        loader,
		Prefs:         prefs,
		Selection:     selection,
		Device:        device,
		Daemon:        daemon,
		Origin:        origin,
		Link:          link,
		NarrowWidth:   cfg.NarrowWidth,
		FrameInterval: cfg.FrameInterval,
		Cooldown:      cfg.MoveCooldown,
		Logger:        logger.Named("tui"),
	})
	stats := tui.NewStatsPage(journal)
	app := tui.NewApp(journal, stats)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("journal ui requires a real terminal")
		}
		return fmt.Errorf("error running journal ui: %w", err)
	}

	return nil
}
