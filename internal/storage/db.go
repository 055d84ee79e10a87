package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Dialect selects the SQL flavor of the underlying database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DB wraps the database connection and its dialect.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New opens (or creates) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(SQLite, dbPath)
}

// Open connects using the given dialect and runs migrations.
func Open(dialect Dialect, dsn string) (*DB, error) {
	driver := string(dialect)
	if dialect == SQLite && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite only supports one writer
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// ── Query helpers ──────────────────────────────────────────

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(q string) string {
	if db.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
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

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (db *DB) exec(e execer, q string, args ...any) (sql.Result, error) {
	if e == nil {
		e = db.conn
	}
	return e.Exec(db.rebind(q), args...)
}

func (db *DB) query(q string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(q), args...)
}

func (db *DB) queryRow(q string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(q), args...)
}

// upsertSQL builds an insert that overwrites non-key columns on conflict.
func (db *DB) upsertSQL(table string, keys, cols []string) string {
	all := append(append([]string{}, keys...), cols...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(all, ", "), marks)

	sets := make([]string, len(cols))
	switch db.dialect {
	case MySQL:
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	default:
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
		return fmt.Sprintf("%s ON CONFLICT(%s) DO UPDATE SET %s", insert, strings.Join(keys, ", "), strings.Join(sets, ", "))
	}
}

// ── Migrations ─────────────────────────────────────────────

func (db *DB) ddl(stmt string) string {
	key, text := "TEXT", "TEXT"
	if db.dialect == MySQL {
		key, text = "VARCHAR(191)", "LONGTEXT"
	}
	return strings.NewReplacer(
		"{key}", key,
		"{text}", text,
		"{float}", "DOUBLE PRECISION",
		"{int}", "BIGINT",
	).Replace(stmt)
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			id {key} PRIMARY KEY,
			remote_id {key} NOT NULL,
			name {text} NOT NULL,
			product_id {key} NOT NULL,
			design_json {text} NOT NULL,
			updated_at {int} NOT NULL
		)`,
		// One row per (design, color, view)
		`CREATE TABLE IF NOT EXISTS view_states (
			design_id {key} NOT NULL,
			color_key {key} NOT NULL,
			view_name {key} NOT NULL,
			canvas_json {text} NOT NULL,
			ratio_json {text} NOT NULL,
			preview_width {float} NOT NULL,
			preview_height {float} NOT NULL,
			updated_at {int} NOT NULL,
			PRIMARY KEY (design_id, color_key, view_name)
		)`,
		// History stacks: entries in order plus a cursor per context
		`CREATE TABLE IF NOT EXISTS history_entries (
			design_id {key} NOT NULL,
			context_key {key} NOT NULL,
			seq {int} NOT NULL,
			snapshot_json {text} NOT NULL,
			PRIMARY KEY (design_id, context_key, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS history_cursors (
			design_id {key} NOT NULL,
			context_key {key} NOT NULL,
			cursor_index {int} NOT NULL,
			PRIMARY KEY (design_id, context_key)
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key_name {key} PRIMARY KEY,
			value {text} NOT NULL
		)`,
		// Approval requests from a standalone MCP process, resolved by the app
		`CREATE TABLE IF NOT EXISTS mcp_approvals (
			id {key} PRIMARY KEY,
			tool {key} NOT NULL,
			description {text} NOT NULL,
			status {key} NOT NULL,
			metadata {text} NOT NULL,
			created_at {int} NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(db.ddl(m)); err != nil {
			return fmt.Errorf("migration failed: %s: %w", strings.Join(strings.Fields(m)[:6], " "), err)
		}
	}
	return nil
}
