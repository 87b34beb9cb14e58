package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mop.org/internal/cli"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := cli.NewMigrateRoot(cli.PostgresOpener).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		cancel()
		os.Exit(cli.GetExitCode(err))
	}
}
