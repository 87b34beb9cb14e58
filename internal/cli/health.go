package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mop.org/internal/probe"
)

// NewHealthCommand creates the health command. It talks to a running API over
// gRPC and does not touch the database.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		addr    string
		service string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:           "health",
		Short:         "Check a running API through the gRPC health service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			client, err := probe.Dial(addr)
			if err != nil {
				return WrapExitError(ExitCommandError, "dial "+addr, err)
			}
			defer client.Close()

			ctx, cancel := probe.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := client.Check(ctx, service)
			f.VerboseLog("health check of %s took %s", res.Target, res.Latency)
			if err != nil && !errors.Is(err, probe.ErrNotServing) {
				return WrapExitError(ExitCommandError, "health check", err)
			}
			if perr := f.Success(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", res.Target, res.Status)
				return err
			}); perr != nil {
				return perr
			}
			if err != nil {
				return WrapExitError(ExitFailure, "health check", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address of the API")
	cmd.Flags().StringVar(&service, "service", "", "service name to check (empty for the whole server)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
