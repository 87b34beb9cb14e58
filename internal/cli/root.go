// Package cli implements the mopctl and migrate command trees.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/config"
	"mop.org/internal/obs"
	"mop.org/internal/store/pg"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DSN     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Backend is what a command operates on. DB is nil for in-process stores.
type Backend struct {
	DB       *sql.DB
	Cases    cases.Store
	Identity auth.Store
	Close    func() error
}

// Opener connects a Backend for one command invocation.
type Opener func(ctx context.Context, opts *RootOptions) (*Backend, error)

// PostgresOpener opens the PostgreSQL stores named by --dsn.
func PostgresOpener(ctx context.Context, opts *RootOptions) (*Backend, error) {
	if opts.DSN == "" {
		return nil, NewExitError(ExitCommandError, "missing DSN: provide --dsn or MOP_DATABASE_URL")
	}
	store, err := pg.Open(config.DatabaseConfig{Driver: config.DriverPostgres, DSN: opts.DSN, MaxOpenConns: 2})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, WrapExitError(ExitCommandError, "ping database", err)
	}
	return &Backend{
		DB:       store.DB(),
		Cases:    store.Cases(),
		Identity: store.Identity(),
		Close:    store.Close,
	}, nil
}

// NewRootCommand creates the mopctl root command.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mopctl",
		Short: "Merchant onboarding administration",
		Long:  "Administrative tasks for the merchant onboarding platform: schema migrations, the permission catalogue, case inspection and health checks.",
	}
	bindGlobalFlags(cmd, opts)

	cmd.AddCommand(NewMigrateCommand(opts, open))
	cmd.AddCommand(NewCatalogCommand(opts, open))
	cmd.AddCommand(NewRBACCommand(opts, open))
	cmd.AddCommand(NewCasesCommand(opts, open))
	cmd.AddCommand(NewHealthCommand(opts))

	return cmd
}

// NewMigrateRoot is the standalone migrate binary: the migrate command with
// the global flags attached.
func NewMigrateRoot(open Opener) *cobra.Command {
	opts := &RootOptions{}
	cmd := NewMigrateCommand(opts, open)
	bindGlobalFlags(cmd, opts)
	return cmd
}

func bindGlobalFlags(cmd *cobra.Command, opts *RootOptions) {
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", os.Getenv("MOP_DATABASE_URL"), "PostgreSQL DSN")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(ValidFormats, opts.Format) {
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		}
		level := "warn"
		if opts.Verbose {
			level = "debug"
		}
		obs.NewLoggerTo(cmd.ErrOrStderr(), config.LogConfig{Level: level, Format: "text"})
		return nil
	}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withBackend opens a backend, runs fn and closes the backend.
func withBackend(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, b *Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if b.Close != nil {
			_ = b.Close()
		}
	}()
	return fn(ctx, b)
}

var errNoDatabase = errors.New("command requires a PostgreSQL backend")
