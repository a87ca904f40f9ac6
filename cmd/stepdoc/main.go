// Command stepdoc loads, queries, edits and exports ISO 10303-21 exchange
// files against CUE-defined entity schemas.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stepdoc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
