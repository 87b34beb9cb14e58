// Package pg implements the case, identity and business-parameter stores on
// PostgreSQL through database/sql and the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mop.org/internal/config"
	"mop.org/internal/domain"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the PostgreSQL backend. One Store serves all three domains.
type Store struct {
	db *sql.DB
}

// Open connects with the pool settings from cfg.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func exec(ctx context.Context, q querier, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

func query(ctx context.Context, q querier, b sq.Sqlizer) (*sql.Rows, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.QueryContext(ctx, stmt, args...)
}

func scanOne(ctx context.Context, q querier, b sq.Sqlizer, dest ...any) error {
	stmt, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return q.QueryRowContext(ctx, stmt, args...).Scan(dest...)
}

// execAffecting runs b and reports NotFound when no row was touched.
func execAffecting(ctx context.Context, q querier, b sq.Sqlizer, kind, id string) error {
	res, err := exec(ctx, q, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(kind, id)
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError translates constraint violations to the domain taxonomy.
func mapWriteError(err error, kind, id string) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return domain.Conflict("%s %s already exists (%s)", kind, id, pgErr.ConstraintName)
		case pgErrForeignKeyViolation:
			return domain.NotFound(kind, id)
		}
	}
	return err
}

func mapNoRows(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(kind, id)
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// containsPattern builds an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
