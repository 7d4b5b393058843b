package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rpn/internal/server"
	"github.com/roach88/rpn/internal/session"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over HTTP+JSON",
		Long: `Serve one calculator session over HTTP+JSON.

The stack lives in memory unless --db names a SQLite database, in which
case it is stored under --session and survives restarts.

Routes:
  GET    /api/v1/stack          current stack
  POST   /api/v1/stack          push {"value": <number>}
  DELETE /api/v1/stack          clear
  POST   /api/v1/op/{name}      apply an operation
  GET    /api/v1/operations     operation catalog
  GET    /api/v1/stack/watch    websocket stream of snapshots`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().String("db", "", "SQLite database; in-memory stack when empty")
	cmd.Flags().String("session", "default", "session id in the database")
	cmd.Flags().StringSlice("allowed-origin", []string{"http://localhost:5173"}, "CORS origin allowed to call the API (repeatable, \"*\" for any)")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	var backend session.Backend
	if cfg.DB == "" {
		backend = session.NewMemory(nil)
		logger.Info("using in-memory stack")
	} else {
		d, err := session.OpenDurable(cfg.DB, cfg.Session, nil)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		backend = d
		logger.Info("using durable stack", "db", cfg.DB, "session", cfg.Session)
	}
	defer backend.Close()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", cfg.Addr), err)
	}

	srv := server.New(backend,
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.AllowedOrigins...),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ServeListener(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
