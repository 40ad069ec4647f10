package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

const showWidth = 72

// listedEnemy is one row of `journal list` output.
type listedEnemy struct {
	model.Enemy
	Seen bool `json:"seen"`
}

func addList(topLevel *cobra.Command, opts *rootOptions) {
	output := outputTable
	var location string
	var unseen bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries.",
		Example: `
journal list
journal list --location "moss grotto"
journal list --unseen -o json
`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validOutput(output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefs, err := kv.Open(opts.cfg.KVPath)
			if err != nil {
				return err
			}
			enemies := opts.loadEnemies(cmd.Context(), prefs)
			rows := filterEnemies(enemies, prefs.Seen(), location, unseen)

			if output != outputTable {
				return printStructured(cmd.OutOrStdout(), output, rows)
			}
			printEnemyTable(color.Output, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format. One of 'table', 'json' or 'yaml'.")
	cmd.Flags().StringVar(&location, "location", "", "only entries whose location contains this text")
	cmd.Flags().BoolVar(&unseen, "unseen", false, "only entries not yet viewed")

	topLevel.AddCommand(cmd)
}

func filterEnemies(enemies []model.Enemy, seen []string, location string, unseenOnly bool) []listedEnemy {
	location = strings.ToLower(strings.TrimSpace(location))
	rows := make([]listedEnemy, 0, len(enemies))
	for _, e := range enemies {
		isSeen := slices.Contains(seen, e.Slug)
		if unseenOnly && isSeen {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(e.LocationOrUnknown()), location) {
			continue
		}
		rows = append(rows, listedEnemy{Enemy: e, Seen: isSeen})
	}
	return rows
}

func printEnemyTable(w io.Writer, rows []listedEnemy) {
	if len(rows) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprintln(w, " none")
		return
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	green := color.New(color.FgGreen)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Slug"), bold.Sprint("Name"), bold.Sprint("Location"), bold.Sprint("Seen"))
	for i, r := range rows {
		mark := faint.Sprint("·")
		if r.Seen {
			mark = green.Sprint("✓")
		}
		tbl.AddRow(strconv.Itoa(i+1), r.Slug, r.Name, r.LocationOrUnknown(), mark)
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(w, tbl)
}

func addShow(topLevel *cobra.Command, opts *rootOptions) {
	output := outputTable

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one journal entry.",
		Example: `
journal show moss-mother
journal show bell-beast -o yaml
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := kv.Open(opts.cfg.KVPath)
			if err != nil {
				return err
			}
			enemies := opts.loadEnemies(cmd.Context(), prefs)
			e, ok := model.Find(enemies, args[0])
			if !ok {
				return fmt.Errorf("no journal entry %q", args[0])
			}

			if output != outputTable {
				return printStructured(cmd.OutOrStdout(), output, e)
			}
			printEnemy(color.Output, e, slices.Contains(prefs.Seen(), e.Slug))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format. One of 'table', 'json' or 'yaml'.")

	topLevel.AddCommand(cmd)
}

func printEnemy(w io.Writer, e model.Enemy, seen bool) {
	title := color.New(color.Bold, color.Underline)
	faint := color.New(color.Faint)
	italic := color.New(color.Italic)

	_, _ = fmt.Fprintln(w, "")
	_, _ = title.Fprint(w, e.Name)
	if seen {
		_, _ = faint.Fprint(w, " (seen)")
	}
	_, _ = fmt.Fprintln(w, "")
	_, _ = faint.Fprintln(w, e.LocationOrUnknown())
	_, _ = fmt.Fprintln(w, "")

	_, _ = fmt.Fprintln(w, indent.String(wordwrap.String(e.Description, showWidth), 2))
	if e.HasSecondary() {
		_, _ = fmt.Fprintln(w, "")
		_, _ = italic.Fprintln(w, indent.String(wordwrap.String(e.SecondaryDescription, showWidth), 2))
	}
	_, _ = fmt.Fprintln(w, "")
	if e.Image != "" {
		_, _ = faint.Fprintf(w, "image  %s\n", e.Image)
	}
	_, _ = faint.Fprintf(w, "link   %s\n", model.DeepLink(e.Slug))
	_, _ = fmt.Fprintln(w, "")
}
