package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type dialect struct {
	primaryKey string
	timestamp  string
	decimal    func(precision, scale int) string
}

var dialects = map[string]dialect{
	"sqlite3": {
		primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp:  "TIMESTAMP",
		decimal:    func(int, int) string { return "REAL" },
	},
	"postgres": {
		primaryKey: "SERIAL PRIMARY KEY",
		timestamp:  "TIMESTAMPTZ",
		decimal: func(precision, scale int) string {
			return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale)
		},
	},
}

type DB struct {
	*sql.DB
	driver string
	log    *zap.Logger
}

func Init(driver, dsn string, log *zap.Logger) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if driver == "sqlite3" {
		dsn = withSQLiteForeignKeys(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database ready", zap.String("driver", driver))
	return &DB{DB: db, driver: driver, log: log}, nil
}

func withSQLiteForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func createTables(ctx context.Context, db *sql.DB, d dialect) error {
	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id %s,
			username VARCHAR(150) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			email VARCHAR(254) NOT NULL DEFAULT '',
			first_name VARCHAR(150) NOT NULL DEFAULT '',
			last_name VARCHAR(150) NOT NULL DEFAULT '',
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			profile_picture VARCHAR(255) NOT NULL DEFAULT '',
			date_joined %s NOT NULL
		)`, d.primaryKey, d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS projects (
			id %s,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			idea VARCHAR(255) NOT NULL,
			file_type VARCHAR(10) NOT NULL,
			file_path VARCHAR(255) NOT NULL DEFAULT '',
			link_url VARCHAR(200) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			file_name VARCHAR(255) NOT NULL DEFAULT '',
			file_size BIGINT NOT NULL DEFAULT 0,
			public_id VARCHAR(20) UNIQUE,
			prediction_confidence %s NOT NULL DEFAULT 0
				CHECK (prediction_confidence >= 0 AND prediction_confidence <= 100),
			verdict VARCHAR(50) NOT NULL DEFAULT 'Pending',
			created_at %s NOT NULL
		)`, d.primaryKey, d.decimal(5, 2), d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS statistics (
			id %s,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			metric_name VARCHAR(100) NOT NULL,
			metric_value %s NOT NULL,
			recorded_at %s NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)`, d.primaryKey, d.decimal(10, 2), d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS login_events (
			id %s,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			login_time %s NOT NULL,
			ip_address VARCHAR(45) NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT ''
		)`, d.primaryKey, d.timestamp),
		`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_statistics_project ON statistics(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_login_events_time ON login_events(login_time)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// rebind rewrites ? placeholders into the driver's bind syntax.
func (db *DB) rebind(query string) string {
	if db.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, db.rebind(query), args...)
}

// Count returns the number of rows in one of the application tables.
func (db *DB) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "users", "projects", "statistics", "login_events":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := db.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// likePattern escapes LIKE wildcards in term and wraps it for a contains match.
// The term is lowered the way the dialect's LOWER() lowers the column: SQLite
// folds only ASCII letters, PostgreSQL folds all of Unicode.
func (db *DB) likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	if db.driver == "postgres" {
		return "%" + strings.ToLower(r.Replace(term)) + "%"
	}
	return "%" + asciiLower(r.Replace(term)) + "%"
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func now() time.Time {
	return time.Now().UTC()
}
