// Package migrate applies the embedded schema migrations with goose and
// loads the reference-data seed files.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
)

const defaultSeedsTable = "schema_seeds"

//go:embed migrations/*.sql
var migrationFS embed.FS

//go:embed seeds/*.sql
var seedFS embed.FS

// Manager executes SQL migrations and seed files.
type Manager struct {
	db         *sql.DB
	provider   *goose.Provider
	seeds      fs.FS
	seedsTable string
}

// Option configures Manager.
type Option func(*Manager)

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// WithSeeds replaces the embedded seed files.
func WithSeeds(fsys fs.FS) Option {
	return func(m *Manager) {
		if fsys != nil {
			m.seeds = fsys
		}
	}
}

// NewManager constructs a Manager over the embedded migrations.
func NewManager(db *sql.DB, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	seeds, err := fs.Sub(seedFS, "seeds")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	m := &Manager{
		db:         db,
		provider:   provider,
		seeds:      seeds,
		seedsTable: defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Up applies all pending migrations and returns the applied file names.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, err
	}
	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Path)
	}
	return applied, nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) (string, error) {
	res, err := m.provider.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return "", errors.New("no migrations applied")
		}
		return "", err
	}
	return res.Source.Path, nil
}

// MigrationState describes one known migration.
type MigrationState struct {
	Version   int64     `json:"version"`
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
}

// Status returns every known migration in version order.
func (m *Manager) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version:   s.Source.Version,
			Name:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// Seed applies seed files idempotently and returns the names it ran.
func (m *Manager) Seed(ctx context.Context) ([]string, error) {
	if err := m.ensureSeedsTable(ctx); err != nil {
		return nil, err
	}
	executed, err := m.listSeeded(ctx)
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(m.seeds, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var ran []string
	for _, name := range files {
		if executed[name] {
			continue
		}
		body, err := fs.ReadFile(m.seeds, name)
		if err != nil {
			return ran, err
		}
		if err := m.exec(ctx, name, string(body)); err != nil {
			return ran, fmt.Errorf("apply seed %s: %w", name, err)
		}
		ran = append(ran, name)
	}
	return ran, nil
}

func (m *Manager) ensureSeedsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		)`, m.seedsTable))
	return err
}

func (m *Manager) exec(ctx context.Context, name, body string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(body) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, m.seedsTable),
		name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) listSeeded(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, m.seedsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result[name] = true
	}
	return result, rows.Err()
}

// splitStatements splits SQL on semicolons outside single-quoted strings.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var inString bool
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
