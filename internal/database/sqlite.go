// Package database implements logbook.Database on SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"obslog/internal/database/migrations"
	"obslog/internal/logbook"
)

// SQLiteDatabase implements logbook.Database using SQLite.
type SQLiteDatabase struct {
	queries
	db   *sqlx.DB
	path string
}

var _ logbook.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{
		queries: queries{ext: db},
		db:      db,
		path:    path,
	}, nil
}

// OpenConnection opens and configures a SQLite connection pool.
// Foreign keys are enabled on every connection, and write transactions take
// the database lock when they begin so lock contention surfaces in Begin.
func OpenConnection(path string) (*sqlx.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemory(path) {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db.DB)
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

// Begin starts a write transaction.
func (s *SQLiteDatabase) Begin(ctx context.Context) (logbook.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %v", logbook.ErrBusy, err)
		}
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return &sqliteTx{queries: queries{ext: tx}, tx: tx}, nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// sqliteTx runs queries inside one transaction.
type sqliteTx struct {
	queries
	tx *sqlx.Tx
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", logbook.ErrBusy, err)
		}
		return err
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// queries implements logbook.Queries over a database or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

// get runs a single-row query, mapping sql.ErrNoRows to found=false.
func (q queries) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	if err := sqlx.GetContext(ctx, q.ext, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (q queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

func (q queries) namedExec(ctx context.Context, query string, arg any) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, q.ext, query, arg)
}

func (q queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.ext.ExecContext(ctx, query, args...)
}

// expectOne checks that an UPDATE touched exactly one row.
func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s %s: %d rows affected, want 1", what, id, n)
	}
	return nil
}
