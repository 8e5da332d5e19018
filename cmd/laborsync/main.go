// Command laborsync keeps a local CSV of monthly BLS labor indicators current.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/laborsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
