// Retro registry search CLI entrypoint - delegates to cli.NewQueryCommand.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/retro-registry/nlretro/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := cli.NewQueryCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Flag parsing errors come from cobra and have not been reported yet.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
