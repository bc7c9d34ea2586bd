package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/runview/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// HistoryEntry is one journaled update pass in JSON output.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Task       string    `json:"task"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	RunCount   int       `json:"run_count"`
	FieldCount int       `json:"field_count"`
	Files      []string  `json:"files"`
	Error      string    `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled update passes",
		Long:  "Lists the update and reset passes recorded in the journal database, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database path (overrides config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum passes to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	f := formatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	dbPath := cfg.Database
	if opts.Database != "" {
		dbPath = opts.Database
	}
	if dbPath == "" {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "no database: pass --db or set database in the config", nil)
	}
	// Open would create an empty journal.
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "database not found", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	updates, err := st.ReadUpdates(cmd.Context(), opts.Limit)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read history", err)
	}

	if f.IsJSON() {
		entries := make([]HistoryEntry, 0, len(updates))
		for _, u := range updates {
			entries = append(entries, HistoryEntry{
				ID:         u.ID,
				Seq:        u.Seq,
				Task:       u.Task,
				StartedAt:  u.StartedAt,
				DurationMS: u.Duration.Milliseconds(),
				RunCount:   u.RunCount,
				FieldCount: u.FieldCount,
				Files:      u.Files,
				Error:      u.Error,
			})
		}
		return f.Success(entries)
	}
	return writeHistory(cmd.OutOrStdout(), updates)
}

func writeHistory(w io.Writer, updates []store.UpdateRecord) error {
	if len(updates) == 0 {
		_, err := fmt.Fprintln(w, "no update passes recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTASK\tSTARTED\tDURATION\tRUNS\tFIELDS\tRESULT")
	for _, u := range updates {
		result := "ok"
		if u.Error != "" {
			result = u.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			u.Seq,
			u.Task,
			humanize.Time(u.StartedAt),
			u.Duration,
			u.RunCount,
			u.FieldCount,
			result,
		)
	}
	return tw.Flush()
}
