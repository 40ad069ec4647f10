package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/gamepad"
	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
)

func addWatch(topLevel *cobra.Command, opts *rootOptions) {
	var narrow bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Navigate the journal with a controller and print each move.",
		Long: `Reads the first joystick device and prints every selection change
without opening the interactive view. Moves update the same selection the
view uses. Stop with Ctrl-C.`,
		Example: `
journal watch
journal watch --narrow
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			prefs, err := kv.Open(cfg.KVPath)
			if err != nil {
				return fmt.Errorf("opening local store: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enemies := opts.loadEnemies(ctx, prefs)
			if len(enemies) <= 1 {
				return fmt.Errorf("no journal entries to navigate")
			}

			js := gamepad.New(gamepad.Config{Dir: cfg.GamepadDir}, opts.logger.Named("gamepad"))
			js.Start()
			defer js.Stop()

			var cue navigator.Cue = navigator.NopCue{}
			if cfg.Bell {
				cue = navigator.BellCue{W: os.Stderr}
			}
			mapper := navigator.NewMapper(navigator.NewSelection(prefs, cue, opts.logger.Named("selection")), cfg.MoveCooldown)

			layout := navigator.Wide
			if narrow {
				layout = navigator.Narrow
			}
			faint := color.New(color.Faint)
			_, _ = faint.Fprintf(color.Output, "watching %s (%s layout), Ctrl-C to stop\n", cfg.GamepadDir, layout)

			watchMoves(ctx, mapper, js.Frames(ctx, cfg.FrameInterval), enemies[1:], layout, color.Output, opts.logger)
			return nil
		},
	}

	cmd.Flags().BoolVar(&narrow, "narrow", false, "use the two-row strip layout")

	topLevel.AddCommand(cmd)
}

// watchMoves drives mapper from frames until ctx is done and prints each
// committed move to w.
func watchMoves(ctx context.Context, mapper *navigator.Mapper, frames iter.Seq[navigator.Snapshot], grid []model.Enemy, layout navigator.Layout, w io.Writer, logger *zap.Logger) {
	name := color.New(color.Bold)
	faint := color.New(color.Faint)

	mapper.Run(ctx, frames,
		func() []model.Enemy { return grid },
		func() navigator.Layout { return layout },
		func(mv navigator.Move) {
			e := grid[mv.To]
			logger.Debug("move", zap.String("slug", mv.Slug), zap.Stringer("direction", mv.Direction))
			_, _ = fmt.Fprintf(w, "%-5s ", mv.Direction)
			_, _ = name.Fprint(w, e.Name)
			_, _ = faint.Fprintf(w, "  %s  %s\n", e.LocationOrUnknown(), model.DeepLink(e.Slug))
		})
}
