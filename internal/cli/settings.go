package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rpn/internal/config"
)

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"allowed-origin": "allowed_origins",
	"log-level":      "log_level",
}

// settings resolves the configuration for cmd once and builds the logger.
// Logs go to stderr so JSON output on stdout stays parseable.
func (o *RootOptions) settings(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if o.cfg != nil {
		return o.cfg, o.logger, nil
	}

	cfg, err := config.Load(config.Options{
		File:     o.ConfigFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	o.cfg = cfg
	o.logger = logger
	return cfg, logger, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
