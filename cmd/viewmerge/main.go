// Command viewmerge loads view workspaces and composes their extensions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/viewmerge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "viewmerge:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
