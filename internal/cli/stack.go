package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/session"
)

// DefaultDB is the local database used by client commands when neither
// --db nor the config names one.
const DefaultDB = "rpn.db"

// addClientFlags registers the flags shared by the stack commands. Values are
// read back through the config layer, so the flags carry no destination.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("remote", "", "server base URL (e.g. http://localhost:8000); local store when empty")
	cmd.Flags().String("db", "", "SQLite database for the local store (rpn.db when unset)")
	cmd.Flags().String("session", "default", "session id in the local store")
	cmd.Flags().Duration("timeout", session.DefaultTimeout, "per-call timeout for --remote")
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "state",
		Short:         "Print the current stack",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session.Session, f *OutputFormatter) error {
				snap, err := sess.State(cmd.Context())
				if err != nil {
					return reportError(f, err)
				}
				return f.Snapshot(snap)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <value>",
		Short: "Push a number onto the stack",
		Long: `Push a number onto the stack.

Negative values work as-is; flags must come before them:
  rpn push -4
  rpn --db calc.db push -4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(sess *session.Session, f *OutputFormatter) error {
				snap, err := sess.Push(cmd.Context(), value)
				if err != nil {
					return reportError(f, err)
				}
				return f.Snapshot(snap)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewOpCommand creates the op command.
func NewOpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op <name>",
		Short: "Apply an operation to the stack",
		Long: `Apply an operation to the stack.

Names are case-insensitive and aliases are accepted ("+", "*", "^", ...).
Run 'rpn ops' for the catalog.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session.Session, f *OutputFormatter) error {
				snap, err := sess.Apply(cmd.Context(), args[0])
				if err != nil {
					return reportError(f, err)
				}
				return f.Snapshot(snap)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Empty the stack",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session.Session, f *OutputFormatter) error {
				ack, err := sess.Clear(cmd.Context())
				if err != nil {
					return reportError(f, err)
				}
				if f.Format == "json" {
					return f.Success(ack)
				}
				return f.Success(ack.Message)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <token>...",
		Short: "Evaluate a sequence of values and operations",
		Long: `Evaluate a sequence of tokens against the stack, left to right.

Numbers are pushed; every other token is applied as an operation.
Evaluation stops at the first error; earlier tokens stay applied.

Example:
  rpn exec 5 3 add 2 mul       # [16]
  rpn exec 9 sqrt -1 add       # [2]`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session.Session, f *OutputFormatter) error {
				var snap engine.Snapshot
				for i, token := range args {
					var err error
					if value, ok := numericToken(token); ok {
						snap, err = sess.Push(cmd.Context(), value)
					} else {
						snap, err = sess.Apply(cmd.Context(), token)
					}
					if err != nil {
						f.VerboseLog("token %d (%q) failed", i+1, token)
						return reportError(f, err)
					}
					f.VerboseLog("token %d (%q): %v", i+1, token, snap.Stack)
				}
				return f.Snapshot(snap)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// withSession resolves the configured backend, wraps it in a session and
// runs fn. The session is closed afterwards.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(*session.Session, *OutputFormatter) error) error {
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	var backend session.Backend
	if cfg.Remote != "" {
		backend, err = session.NewRemote(cfg.Remote, session.WithTimeout(cfg.Timeout))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid remote", err)
		}
		logger.Debug("using remote backend", "remote", cfg.Remote)
	} else {
		path := cfg.DB
		if path == "" {
			path = DefaultDB
		}
		backend, err = session.OpenDurable(path, cfg.Session, nil)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		logger.Debug("using local store", "db", path, "session", cfg.Session)
	}

	sess := session.New(backend, session.WithID(cfg.Session), session.WithLogger(logger))
	defer sess.Close()

	return fn(sess, opts.formatter(cmd))
}

// reportError prints err through the formatter and maps it to an exit code.
// Calculation errors exit 1; anything that leaves the outcome unknown exits 2.
func reportError(f *OutputFormatter, err error) error {
	var calc *engine.Error
	if errors.As(err, &calc) {
		var details interface{}
		if len(calc.Details) > 0 {
			details = calc.Details
		}
		_ = f.Error(string(calc.Kind), calc.Message, details)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", calc.Kind, calc.Message), nil)
	}

	code := "Internal"
	switch {
	case errors.Is(err, session.ErrBusy):
		code = "Busy"
	case session.IsTimeout(err):
		code = "Timeout"
	case session.IsTransportError(err):
		code = "TransportError"
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// parseValue parses a push operand. Out-of-range input becomes ±Inf and is
// rejected by the backend as an invalid operand, matching the server.
func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid value %q: not a number", s))
	}
	return v, nil
}

// numericToken reports whether an exec token is a value to push. Words that
// strconv accepts as non-finite ("inf", "nan") are pushed and then rejected.
func numericToken(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}
