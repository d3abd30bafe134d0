package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INT PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrations lists the schema in apply order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "catalog",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS careers (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS authors (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				nationality TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS publishers (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				country TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS operators (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				role TEXT NOT NULL DEFAULT 'OPERATOR' CHECK (role IN ('OPERATOR', 'ADMIN'))
			)`,
			`CREATE TABLE IF NOT EXISTS students (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				semester INT NOT NULL CHECK (semester BETWEEN 1 AND 12),
				career_id UUID NOT NULL REFERENCES careers(id) ON DELETE RESTRICT
			)`,
			`CREATE TABLE IF NOT EXISTS books (
				id UUID PRIMARY KEY,
				title TEXT NOT NULL,
				author_id UUID NOT NULL REFERENCES authors(id) ON DELETE RESTRICT,
				category_id UUID NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
				publisher_id UUID NOT NULL REFERENCES publishers(id) ON DELETE RESTRICT,
				publication_year CHAR(4) NOT NULL CHECK (publication_year ~ '^[0-9]{4}$'),
				status TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN ('AVAILABLE', 'LOANED'))
			)`,
		},
	},
	{
		Version: 2,
		Name:    "loans",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS loans (
				id UUID PRIMARY KEY,
				student_id UUID NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
				book_id UUID NOT NULL REFERENCES books(id) ON DELETE RESTRICT,
				operator_id UUID NOT NULL REFERENCES operators(id) ON DELETE RESTRICT,
				loan_date DATE NOT NULL,
				return_date DATE,
				status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RETURNED')),
				CONSTRAINT loans_return_date_matches_status CHECK ((status = 'RETURNED') = (return_date IS NOT NULL))
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS loans_one_active_per_book ON loans (book_id) WHERE status = 'ACTIVE'`,
			`CREATE INDEX IF NOT EXISTS loans_student_status_idx ON loans (student_id, status)`,
			`CREATE INDEX IF NOT EXISTS loans_loan_date_idx ON loans (loan_date)`,
			`CREATE TABLE IF NOT EXISTS historical_records (
				id TEXT PRIMARY KEY,
				loan_id UUID REFERENCES loans(id) ON DELETE RESTRICT,
				student_id UUID NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
				book_id UUID NOT NULL REFERENCES books(id) ON DELETE RESTRICT,
				operator_id UUID NOT NULL REFERENCES operators(id) ON DELETE RESTRICT,
				loan_date DATE NOT NULL,
				return_date DATE
			)`,
			`CREATE INDEX IF NOT EXISTS historical_records_open_idx ON historical_records (student_id, book_id) WHERE return_date IS NULL`,
		},
	},
	{
		Version: 3,
		Name:    "sanctions",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS sanctions (
				id UUID PRIMARY KEY,
				student_id UUID NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
				reason TEXT NOT NULL,
				start_date DATE NOT NULL,
				end_date DATE,
				CONSTRAINT sanctions_end_after_start CHECK (end_date IS NULL OR end_date >= start_date)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS sanctions_one_open_per_reason ON sanctions (student_id, reason) WHERE end_date IS NULL`,
		},
	},
}

// Migrate applies every migration not yet recorded, each in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return 0, fmt.Errorf("list applied migrations: %w", err)
	}
	applied := make(map[int]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}

	count := 0
	for _, m := range Migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return count, err
		}
		count++
		logger.Info("migration applied", zap.Int("version", m.Version), zap.String("name", m.Name))
	}
	return count, nil
}

func apply(ctx context.Context, db *sqlx.DB, m Migration) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.Statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}
