package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

const rpcTimeout = 2 * time.Minute

func addNotify(topLevel *cobra.Command, opts *rootOptions) {
	var periodic bool
	tag := model.PeriodicSyncTag

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a random enemy notification now.",
		Long: `Ask journald to deliver one random enemy notification.

With --periodic the command acts as the periodic wake-up registered by
journald: the cycle only runs for the notification tag and is skipped
while the interval fallback owns delivery.`,
		Example: `
journal notify
journal notify --periodic --tag hunter-journal-notification
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()

			if periodic {
				client, err := opts.dial()
				if err != nil {
					// A timer firing while journald is down is not an error.
					opts.logger.Warn("periodic wake skipped, journald unavailable", zap.String("tag", tag))
					fmt.Fprintln(os.Stderr, "journald is not running; periodic notification skipped")
					return nil
				}
				defer client.Close()

				ran, err := client.PeriodicSync(ctx, tag)
				if err != nil {
					return err
				}
				opts.logger.Info("periodic wake handled", zap.String("tag", tag), zap.Bool("ran", ran))
				return nil
			}

			client, err := opts.requireDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.SendNotification(ctx)
			if err != nil {
				return err
			}
			if !res.Delivered {
				return fmt.Errorf("no notification delivered; check the journald log")
			}
			fmt.Fprintf(color.Output, "Delivered %s\n", color.New(color.Bold).Sprint(res.Slug))
			return nil
		},
	}

	cmd.Flags().BoolVar(&periodic, "periodic", false, "handle a periodic wake-up instead of a manual send")
	cmd.Flags().StringVar(&tag, "tag", tag, "periodic sync tag")

	topLevel.AddCommand(cmd)
}

func addStartNotifications(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "start-notifications",
		Short: "Start the interval notification timer in journald.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.requireDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			started, err := client.StartPeriodicNotifications(cmd.Context())
			if err != nil {
				return err
			}
			if started {
				fmt.Fprintln(cmd.OutOrStdout(), "Interval notifications started.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Interval notifications already running.")
			}
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addEnableNotifications(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "enable-notifications",
		Short: "Grant notification permission and activate delivery.",
		Long: `Record notification permission as granted, the same answer the view's
prompt stores, and ask journald to activate delivery. journald registers a
periodic wake-up when it can and falls back to an interval timer otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefs, err := kv.Open(opts.cfg.KVPath)
			if err != nil {
				return err
			}
			if err := prefs.SetFlag(kv.KeyNotifAsked, true); err != nil {
				return err
			}
			if err := prefs.SetPermission(model.PermissionGranted); err != nil {
				return err
			}

			client, err := opts.requireDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			mode, err := client.Activate(ctx, model.PermissionGranted)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notifications active (%s).\n", mode)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

// statusReport is the structured form of `journal status`.
type statusReport struct {
	Scheduler  model.SchedulerStatus  `json:"scheduler"`
	Deliveries []model.DeliveryRecord `json:"deliveries"`
}

func addStatus(topLevel *cobra.Command, opts *rootOptions) {
	output := outputTable
	limit := 10

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scheduler state and recent deliveries.",
		Example: `
journal status
journal status --limit 25 -o json
`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validOutput(output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.requireDaemon()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			st, err := client.Status(ctx)
			if err != nil {
				return err
			}
			recs, err := client.RecentDeliveries(ctx, limit)
			if err != nil {
				return err
			}

			report := statusReport{Scheduler: st, Deliveries: recs}
			if output != outputTable {
				return printStructured(cmd.OutOrStdout(), output, report)
			}
			printStatus(color.Output, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format. One of 'table', 'json' or 'yaml'.")
	cmd.Flags().IntVar(&limit, "limit", limit, "number of recent deliveries to show")

	topLevel.AddCommand(cmd)
}

func printStatus(w io.Writer, r statusReport) {
	bold := color.New(color.Bold)
	title := color.New(color.Bold, color.Underline)
	faint := color.New(color.Faint)

	_, _ = title.Fprintln(w, "Scheduler")
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Mode"), string(r.Scheduler.Mode))
	tbl.AddRow(bold.Sprint("Fallback"), onOff(r.Scheduler.FallbackRunning))
	tbl.AddRow(bold.Sprint("Fallback flag"), onOff(r.Scheduler.FallbackFlag))
	tbl.AddRow(bold.Sprint("Attached views"), r.Scheduler.AttachedViews)
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)
	_, _ = fmt.Fprintln(w, "")

	_, _ = title.Fprintln(w, "Recent deliveries")
	if len(r.Deliveries) == 0 {
		_, _ = faint.Fprintln(w, " none")
		return
	}
	tbl = uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("When"), bold.Sprint("Slug"), bold.Sprint("Trigger"))
	for _, d := range r.Deliveries {
		tbl.AddRow(d.DeliveredAt.Local().Format("2006-01-02 15:04"), d.Slug, d.Trigger)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func onOff(v bool) string {
	if v {
		return color.GreenString("on")
	}
	return color.New(color.Faint).Sprint("off")
}

func addVersion(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hunter's Journal - Terminal Client\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}

	topLevel.AddCommand(cmd)
}
