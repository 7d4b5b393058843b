package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rpn/internal/server"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ops",
		Short:         "List the supported operations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ops := server.Operations()
			if f.Format == "json" {
				return f.Success(ops)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-6s %-4s %-4s %s\n", "NAME", "POP", "PUSH", "ALIASES")
			for _, op := range ops {
				fmt.Fprintf(w, "%-6s %-4d %-4d %s\n", op.Name, op.Pop, op.Push, dimText(strings.Join(op.Aliases, " ")))
			}
			return nil
		},
	}
}
