// Command culture-kernel serves and administers the protocol catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/culturekernel/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "culture-kernel:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
