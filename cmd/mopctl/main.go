package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mop.org/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(cli.PostgresOpener)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mopctl: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
