package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rpn/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit    int
	Sessions bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the operation log of a stored session",
		Long: `Show the operation log of a session in the local SQLite store.

Every push, operation and clear is recorded. Rejected ones are kept
with their error kind; the stack itself is never changed by
a rejected entry.

Example:
  rpn history --db rpn.db --session default --limit 20
  rpn history --sessions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().String("db", "", "SQLite database (rpn.db when unset)")
	cmd.Flags().String("session", "default", "session id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N entries (0 for all)")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list stored sessions instead")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	path := cfg.DB
	if path == "" {
		path = DefaultDB
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	logger.Debug("reading history", "db", path, "session", cfg.Session)

	ctx := cmd.Context()

	if opts.Sessions {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(sessions)
		}
		printSessions(cmd.OutOrStdout(), sessions)
		return nil
	}

	info, err := st.SessionInfo(ctx, cfg.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		_ = formatter.Error("SessionNotFound", fmt.Sprintf("no history for session %q", cfg.Session), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	records, err := st.Operations(ctx, cfg.Session, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read operations", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"session":    info,
			"operations": records,
		})
	}
	printHistory(cmd.OutOrStdout(), info, records)
	return nil
}

func printSessions(w io.Writer, sessions []store.SessionInfo) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions stored.")
		return
	}
	fmt.Fprintf(w, "%-38s %-6s %-6s %s\n", "SESSION", "SIZE", "OPS", "UPDATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%-38s %-6d %-6d %s\n", s.ID, s.Size, s.OperationCount, s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printHistory(w io.Writer, info store.SessionInfo, records []store.OperationRecord) {
	fmt.Fprintf(w, "Session: %s (%d operations, stack size %d)\n", info.ID, info.OperationCount, info.Size)
	fmt.Fprintln(w)
	for _, rec := range records {
		label := rec.Kind
		switch {
		case rec.Value != nil:
			label = fmt.Sprintf("%s %s", rec.Kind, formatValue(*rec.Value))
		case rec.Name != "":
			label = fmt.Sprintf("%s %s", rec.Kind, rec.Name)
		}

		mark := passMark("✓")
		outcome := fmt.Sprintf("size %d", rec.SizeAfter)
		if rec.Outcome != store.OutcomeOK {
			mark = failMark("✗")
			outcome = fmt.Sprintf("%s: %s", rec.Outcome, rec.Detail)
		}
		fmt.Fprintf(w, "  %s [%d] %-14s %s\n", mark, rec.Seq, label, outcome)
	}
}
