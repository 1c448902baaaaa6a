package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hession/sqlitemcp/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMillis lets concurrent invocations wait on the file lock
// instead of failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// Manager owns the location of the database file and hands out
// connections with the people table guaranteed to exist
type Manager struct {
	dataDir  string
	fileName string
}

// NewManager creates a store manager. Empty arguments fall back to
// <cwd>/data and demo.db.
func NewManager(dataDir, fileName string) *Manager {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Manager{dataDir: dataDir, fileName: fileName}
}

// DefaultDataDir returns <cwd>/data
func DefaultDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultDataDirName
	}
	return filepath.Join(cwd, DefaultDataDirName)
}

// Path returns the database file path
func (m *Manager) Path() string {
	return filepath.Join(m.dataDir, m.fileName)
}

// Initialize opens a fresh connection, creating the data directory, the
// database file and the people table as needed. The caller owns the
// returned Conn and must Close it.
func (m *Manager) Initialize(ctx context.Context) (*Conn, error) {
	path := m.Path()
	logger.DebugCtx(ctx, "Attempting to connect to database at: %s", path)

	// Ensure directory exists
	if err := os.MkdirAll(m.dataDir, 0755); err != nil {
		logger.ErrorCtx(ctx, "Database initialization error: %v", err)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMillis))
	if err != nil {
		logger.ErrorCtx(ctx, "Database initialization error: %v", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One physical connection per Conn: the handle stands in for a
	// single connection/cursor pair.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, SchemaSQL); err != nil {
		db.Close()
		logger.ErrorCtx(ctx, "Database initialization error: %v", err)
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	logger.DebugCtx(ctx, "Database initialization successfully completed")
	return &Conn{db: db, path: path}, nil
}

// Conn is a private, short-lived connection to the store
type Conn struct {
	db   *sql.DB
	path string
}

// Path returns the database file path
func (c *Conn) Path() string {
	return c.path
}

// Exec runs query verbatim in its own transaction and commits it. Nothing
// is committed when the statement fails. query must hold exactly one
// statement.
func (c *Conn) Exec(ctx context.Context, query string) (int64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, ErrEmptyStatement
	}
	if err := c.checkSingleStatement(ctx, query); err != nil {
		return 0, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// Query runs query verbatim and fetches every row. The statement runs in
// a transaction that is always rolled back, so it never changes the store.
func (c *Conn) Query(ctx context.Context, query string) ([]Row, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyStatement
	}
	if err := c.checkSingleStatement(ctx, query); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make(Row, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

// People returns every person ordered by id
func (c *Conn) People(ctx context.Context) ([]Person, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name, age, profession FROM people ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Profession); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}

	return people, rows.Err()
}

// Columns describes the people table
func (c *Conn) Columns(ctx context.Context) ([]Column, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+TableName+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			col     Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&col.CID, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// Close closes the connection. Calling it more than once is safe.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
