package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mop.org/internal/auth"
)

// CheckResult is the outcome of rbac check.
type CheckResult struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
	Allowed      bool   `json:"allowed"`
}

// NewRBACCommand creates the rbac command.
func NewRBACCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var (
		adminRole string
		wildcard  string
	)
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "Inspect role permissions",
	}
	check := &cobra.Command{
		Use:   "check <role> <permission>",
		Short: "Report whether a role grants a permission",
		Long: `Resolve a permission for a role the same way the API does, including
the administrator and wildcard overrides. Exits 1 when not granted.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				resolver := auth.NewResolver(b.Identity,
					auth.WithAdminRole(adminRole),
					auth.WithWildcardPermission(wildcard),
				)
				ok, err := resolver.HasPermission(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("rbac check: %w", err)
				}
				res := CheckResult{RoleID: args[0], PermissionID: args[1], Allowed: ok}
				if err := f.Success(res, func(w io.Writer) error {
					verdict := "DENIED"
					if ok {
						verdict = "GRANTED"
					}
					_, err := fmt.Fprintf(w, "%s %s: %s\n", res.RoleID, res.PermissionID, verdict)
					return err
				}); err != nil {
					return err
				}
				if !ok {
					return NewExitError(ExitFailure, "permission not granted")
				}
				return nil
			})
		},
	}
	check.Flags().StringVar(&adminRole, "admin-role", "admin", "role id that is granted everything")
	check.Flags().StringVar(&wildcard, "wildcard", auth.PermAllModules, "permission id that implies every other")
	cmd.AddCommand(check)
	return cmd
}
