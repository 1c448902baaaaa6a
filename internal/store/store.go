package store

import (
	"errors"
)

const (
	// DefaultDataDirName is the directory, relative to the working
	// directory, that holds the database file
	DefaultDataDirName = "data"
	// DefaultFileName is the database file name
	DefaultFileName = "demo.db"
	// TableName is the only table the store manages
	TableName = "people"
)

// SchemaSQL creates the people table. Every column but id is NOT NULL so
// incomplete records are rejected by the engine rather than defaulted.
const SchemaSQL = `CREATE TABLE IF NOT EXISTS people (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	profession TEXT NOT NULL
)`

var (
	// ErrEmptyStatement is returned when a blank statement is executed
	ErrEmptyStatement = errors.New("empty SQL statement")
	// ErrMultipleStatements is returned when the text holds more than one statement
	ErrMultipleStatements = errors.New("only one statement can be executed at a time")
)

// Person person record
type Person struct {
	ID         int64
	Name       string
	Age        int
	Profession string
}

// Row is one result row. Its shape follows the statement's column list.
type Row []any

// Column column description from PRAGMA table_info
type Column struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}
