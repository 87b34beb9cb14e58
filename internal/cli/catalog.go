package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mop.org/internal/auth"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the built-in permission and role catalogue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "ensure",
		Short:         "Create missing built-in permissions and roles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				created, err := auth.EnsureCatalog(ctx, b.Identity, nil)
				if err != nil {
					return fmt.Errorf("catalog ensure: %w", err)
				}
				f.VerboseLog("catalog ensure created %d entries", created)
				return f.Success(map[string]int{"created": created}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "catalog up to date (%d created)\n", created)
					return err
				})
			})
		},
	})
	return cmd
}
