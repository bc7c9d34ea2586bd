package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/runview/internal/engine"
	"github.com/roach88/runview/internal/model"
	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/runs"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Filters    []string
	Sort       string
	Descending bool
	Database   string
	Color      bool
}

// ShowResult is the JSON output of show.
type ShowResult struct {
	UpdateID string    `json:"update_id"`
	Seq      int64     `json:"seq"`
	Columns  []string  `json:"columns"`
	Rows     []ShowRow `json:"rows"`
	Changes  []string  `json:"changes"`
	Files    []string  `json:"files"`
}

// ShowRow is one flattened table row.
type ShowRow struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
	Slot  string `json:"slot,omitempty"`
	State string `json:"state"`
	// Values holds the rendered value of each column the run has.
	Values map[string]string `json:"values"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [payload.json]",
		Short: "Print the run table of a payload",
		Long: `Runs one update pass over the payload and prints the run table.

Rows are the workspace, each branch, its experiments and their checkpoints.
Columns are the selected leaf fields. Filters use the form
<path><operator><value>, e.g. "params/params.yaml/epochs>=10".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "filter expression (repeatable)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort experiments by field path")
	cmd.Flags().BoolVar(&opts.Descending, "desc", false, "sort descending")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database path (overrides config)")
	cmd.Flags().BoolVar(&opts.Color, "color", false, "colour rows by plot slot")

	return cmd
}

func runShow(cmd *cobra.Command, args []string, opts *ShowOptions) error {
	f := formatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}

	filters := cfg.Filters
	for _, expr := range opts.Filters {
		def, err := query.ParseFilter(expr)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeFilter, "invalid filter", err)
		}
		filters = append(filters, def)
	}
	sorts := cfg.Sort
	if opts.Sort != "" {
		sorts = []query.SortDefinition{{Path: opts.Sort, Descending: opts.Descending}}
	}

	dbPath := cfg.Database
	if opts.Database != "" {
		dbPath = opts.Database
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, f, logger, cfg, payloadArg(args, cfg), dbPath,
		engine.WithFilters(filters...),
		engine.WithSort(sorts...),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.refresh(ctx, f)
	if err != nil {
		return err
	}

	if f.IsJSON() {
		return f.Success(showResult(snap))
	}
	return writeTable(cmd.OutOrStdout(), snap, opts.Color)
}

func showResult(snap *engine.Snapshot) ShowResult {
	res := ShowResult{
		UpdateID: snap.UpdateID,
		Seq:      snap.Seq,
		Columns:  nonNil(snap.SelectedLeaves),
		Rows:     []ShowRow{},
		Changes:  nonNil(snap.Changes),
		Files:    nonNil(snap.Files),
	}
	runs.Flatten(snap.Rows, func(run model.Run, depth int) {
		row := ShowRow{
			ID:     run.ID,
			Label:  runLabel(run),
			Depth:  depth,
			Slot:   string(snap.Slot(run.ID)),
			State:  runState(run),
			Values: make(map[string]string),
		}
		for _, path := range snap.SelectedLeaves {
			if v, ok := run.Lookup(path); ok {
				row.Values[path] = model.FormatValue(v)
			}
		}
		res.Rows = append(res.Rows, row)
	})
	return res
}

// writeTable prints the run table, one line per row, followed by a summary.
// With colour, each row is styled with its slot; a writer that is not a
// terminal gets plain text.
func writeTable(w io.Writer, snap *engine.Snapshot, color bool) error {
	var (
		table bytes.Buffer
		slots []string
	)
	tw := tabwriter.NewWriter(&table, 0, 0, 2, ' ', 0)

	header := append([]string{"RUN", "SLOT", "STATE"}, snap.SelectedLeaves...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	runs.Flatten(snap.Rows, func(run model.Run, depth int) {
		slot := string(snap.Slot(run.ID))
		slots = append(slots, slot)

		cells := []string{
			strings.Repeat("  ", depth) + runLabel(run),
			orDash(slot),
			runState(run),
		}
		for _, path := range snap.SelectedLeaves {
			v, ok := run.Lookup(path)
			if !ok {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, model.FormatValue(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	})
	if err := tw.Flush(); err != nil {
		return err
	}

	renderer := lipgloss.NewRenderer(w)
	lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
	for i, text := range lines {
		// Line 0 is the header.
		if color && i > 0 && slots[i-1] != "" {
			text = renderer.NewStyle().Foreground(lipgloss.Color(slots[i-1])).Render(text)
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%d runs, %d fields\n", snap.Runs.Len(), len(snap.Descriptors))
	if len(snap.Changes) > 0 {
		fmt.Fprintf(w, "workspace changes: %s\n", strings.Join(snap.Changes, ", "))
	}
	return nil
}

// runLabel is the display name, annotated with the parent of a checkpoint
// that branched from outside its own lineage.
func runLabel(run model.Run) string {
	if strings.HasPrefix(run.DisplayNameOrParent, "(") {
		return run.DisplayName + " " + run.DisplayNameOrParent
	}
	return run.DisplayName
}

func runState(run model.Run) string {
	switch {
	case run.Failed:
		return "failed"
	case run.Running:
		return "running"
	case run.Queued:
		return "queued"
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
