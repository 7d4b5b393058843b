// Command rpn is a Reverse Polish Notation calculator: a local durable
// stack, an HTTP+JSON server and a client for it.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rpn/internal/cli"
)

func main() {
	args := cli.NormalizeNumericArgs(os.Args)

	cmd := cli.NewRootCommand()
	cmd.SetArgs(args[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rpn: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
