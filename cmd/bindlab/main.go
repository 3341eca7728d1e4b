// Command bindlab runs value and reference binding demonstrations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bindlab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
