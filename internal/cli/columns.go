package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/runview/internal/engine"
	"github.com/roach88/runview/internal/model"
	"github.com/roach88/runview/internal/selection"
)

// ColumnsOptions holds flags for the columns command.
type ColumnsOptions struct {
	*RootOptions
	Unselect []string
}

// Column is one field descriptor with its selection status.
type Column struct {
	Path            string   `json:"path"`
	Status          string   `json:"status"`
	Types           []string `json:"types"`
	MinNumber       *float64 `json:"min_number,omitempty"`
	MaxNumber       *float64 `json:"max_number,omitempty"`
	MaxStringLength *int     `json:"max_string_length,omitempty"`
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ColumnsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "columns [payload.json]",
		Short: "Print the field descriptors of a payload",
		Long: `Runs one update pass over the payload and prints every params and
metrics field with its observed types, numeric range, widest rendered value
and selection status. New fields start selected; --unselect turns a path
and everything below it off.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Unselect, "unselect", nil, "toggle a field path off (repeatable)")

	return cmd
}

func runColumns(cmd *cobra.Command, args []string, opts *ColumnsOptions) error {
	f := formatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, f, logger, cfg, payloadArg(args, cfg), "")
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.refresh(ctx, f); err != nil {
		return err
	}
	for _, path := range opts.Unselect {
		// Toggling an unselected path would select it again.
		if status, ok := s.engine.Snapshot().Statuses[path]; ok && status == selection.Unselected {
			continue
		}
		if _, err := s.engine.ToggleField(path); err != nil {
			return f.Fail(ExitCommandError, ErrCodeField, "cannot unselect "+path, err)
		}
	}

	columns := columnsOf(s.engine.Snapshot())
	if f.IsJSON() {
		return f.Success(columns)
	}
	return writeColumns(cmd.OutOrStdout(), columns)
}

func columnsOf(snap *engine.Snapshot) []Column {
	out := make([]Column, 0, len(snap.Descriptors))
	for _, d := range snap.Descriptors {
		out = append(out, Column{
			Path:            d.Path,
			Status:          snap.Statuses[d.Path].String(),
			Types:           nonNil(d.Types),
			MinNumber:       d.MinNumber,
			MaxNumber:       d.MaxNumber,
			MaxStringLength: d.MaxStringLength,
		})
	}
	return out
}

func writeColumns(w io.Writer, columns []Column) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTATUS\tTYPES\tRANGE\tMAXLEN")
	for _, c := range columns {
		maxLen := "-"
		if c.MaxStringLength != nil {
			maxLen = strconv.Itoa(*c.MaxStringLength)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Path,
			c.Status,
			orDash(strings.Join(c.Types, ",")),
			numberRange(c),
			maxLen,
		)
	}
	return tw.Flush()
}

func numberRange(c Column) string {
	if c.MinNumber == nil || c.MaxNumber == nil {
		return "-"
	}
	return model.FormatNumber(*c.MinNumber) + ".." + model.FormatNumber(*c.MaxNumber)
}

