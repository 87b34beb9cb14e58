package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mop.org/internal/migrate"
)

// NewMigrateCommand creates the migrate command with up, down, status and seed.
func NewMigrateCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database schema migrations",
	}

	run := func(name string, fn func(ctx context.Context, m *migrate.Manager, f *OutputFormatter) error) *cobra.Command {
		return &cobra.Command{
			Use:           name,
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				f := rootOpts.formatter(cmd)
				return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
					if b.DB == nil {
						return WrapExitError(ExitCommandError, "migrate "+name, errNoDatabase)
					}
					m, err := migrate.NewManager(b.DB)
					if err != nil {
						return WrapExitError(ExitCommandError, "migrate "+name, err)
					}
					return fn(ctx, m, f)
				})
			},
		}
	}

	up := run("up", func(ctx context.Context, m *migrate.Manager, f *OutputFormatter) error {
		applied, err := m.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return f.Success(map[string]any{"applied": applied}, func(w io.Writer) error {
			return printNames(w, "applied", applied)
		})
	})
	up.Short = "Apply all pending migrations"

	down := run("down", func(ctx context.Context, m *migrate.Manager, f *OutputFormatter) error {
		rolled, err := m.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return f.Success(map[string]any{"rolled_back": rolled}, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "rolled back: %s\n", rolled)
			return err
		})
	})
	down.Short = "Roll back the most recent migration"

	status := run("status", func(ctx context.Context, m *migrate.Manager, f *OutputFormatter) error {
		states, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		return f.Success(states, func(w io.Writer) error {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
			for _, s := range states {
				applied := "pending"
				if s.Applied {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, s.Name, applied)
			}
			return tw.Flush()
		})
	})
	status.Short = "Show applied and pending migrations"

	seed := run("seed", func(ctx context.Context, m *migrate.Manager, f *OutputFormatter) error {
		seeded, err := m.Seed(ctx)
		if err != nil {
			return fmt.Errorf("migrate seed: %w", err)
		}
		return f.Success(map[string]any{"seeded": seeded}, func(w io.Writer) error {
			return printNames(w, "seeded", seeded)
		})
	})
	seed.Short = "Load reference data seeds that have not run yet"

	cmd.AddCommand(up, down, status, seed)
	return cmd
}

func printNames(w io.Writer, verb string, names []string) error {
	if len(names) == 0 {
		_, err := fmt.Fprintf(w, "nothing %s\n", verb)
		return err
	}
	for _, n := range names {
		if _, err := fmt.Fprintf(w, "%s: %s\n", verb, n); err != nil {
			return err
		}
	}
	return nil
}
