package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hession/sqlitemcp/internal/logger"
	"github.com/hession/sqlitemcp/internal/observability"
	"github.com/hession/sqlitemcp/internal/store"
)

const (
	AddDataToolName  = "add_data"
	ReadDataToolName = "read_data"

	// DefaultReadQuery is used when read_data is called without a query
	DefaultReadQuery = "SELECT * FROM people"
)

// AddDataTool inserts rows into the people table. The statement is run
// verbatim: no parameterization and no check that it is an INSERT. Text
// holding more than one statement is rejected.
type AddDataTool struct {
	store *store.Manager
}

func NewAddDataTool(manager *store.Manager) *AddDataTool {
	return &AddDataTool{store: manager}
}

func (t *AddDataTool) Name() string {
	return AddDataToolName
}

func (t *AddDataTool) Description() string {
	return `Add new data to the people table using a SQL INSERT query.

Format:
  INSERT INTO people (name, age, profession) VALUES ('John Doe', 30, 'Engineer')

Schema:
  - name: text (required)
  - age: integer (required)
  - profession: text (required)
  - id is generated automatically

Returns true if the data was added, false otherwise.`
}

func (t *AddDataTool) Parameters() []ParameterDef {
	return []ParameterDef{
		{
			Name:        "query",
			Type:        "string",
			Description: "SQL INSERT statement against the people table",
			Required:    true,
		},
	}
}

func (t *AddDataTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, present, err := queryArg(args)
	if err != nil {
		return "", err
	}
	if !present {
		return "", fmt.Errorf("missing required parameter: query")
	}
	// a blank statement is still a statement: Run reports it as false
	return strconv.FormatBool(t.Run(ctx, query)), nil
}

// Run executes query on a fresh connection and commits it. It reports
// true only if both succeeded; every failure, panics included, is
// logged and reported as false.
func (t *AddDataTool) Run(ctx context.Context, query string) (ok bool) {
	// an invocation runs to completion once started
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Unexpected error adding data: %v", r)
			ok = false
		}
		observability.RecordToolInvocation(AddDataToolName, ok, time.Since(start))
	}()

	logger.InfoCtx(ctx, "Attempting to add data with query: %s", query)

	conn, err := t.store.Initialize(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "Error adding data: %v", err)
		return false
	}
	defer conn.Close()

	if _, err := conn.Exec(ctx, query); err != nil {
		logger.ErrorCtx(ctx, "Error adding data: %v", err)
		return false
	}

	logger.InfoCtx(ctx, "Successfully added record")
	return true
}

// ReadDataTool runs a query against the store and returns the rows. It
// never commits, so a write sent through it leaves the store unchanged.
type ReadDataTool struct {
	store *store.Manager
}

func NewReadDataTool(manager *store.Manager) *ReadDataTool {
	return &ReadDataTool{store: manager}
}

func (t *ReadDataTool) Name() string {
	return ReadDataToolName
}

func (t *ReadDataTool) Description() string {
	return `Read data from the people table using a SQL SELECT query.

Examples:
  - SELECT * FROM people
  - SELECT name, age FROM people WHERE age > 25
  - SELECT * FROM people ORDER BY age DESC

Returns a JSON array of rows, each row an array of column values in
SELECT order. For the default query a row is [id, name, age, profession].
An empty array is returned when nothing matches or the query fails.`
}

func (t *ReadDataTool) Parameters() []ParameterDef {
	return []ParameterDef{
		{
			Name:        "query",
			Type:        "string",
			Description: "SQL SELECT statement, defaults to " + DefaultReadQuery,
			Required:    false,
			Default:     DefaultReadQuery,
		},
	}
}

func (t *ReadDataTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _, err := queryArg(args)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(t.Run(ctx, query))
	if err != nil {
		return "", fmt.Errorf("failed to encode rows: %w", err)
	}
	return string(payload), nil
}

// Run executes query on a fresh connection. A blank query means
// DefaultReadQuery. Nothing the query does is committed: writes are
// rolled back when the connection is released. Any failure is logged and
// yields an empty, non-nil slice, so callers cannot tell "no rows" from
// "query failed".
func (t *ReadDataTool) Run(ctx context.Context, query string) (rows []store.Row) {
	if strings.TrimSpace(query) == "" {
		query = DefaultReadQuery
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	ok := false
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Unexpected error reading data: %v", r)
			rows = []store.Row{}
			ok = false
		}
		observability.RecordToolInvocation(ReadDataToolName, ok, time.Since(start))
	}()

	logger.InfoCtx(ctx, "Attempting to read data with query: %s", query)

	conn, err := t.store.Initialize(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "Error reading data: %v", err)
		return []store.Row{}
	}
	defer conn.Close()

	rows, err = conn.Query(ctx, query)
	if err != nil {
		logger.ErrorCtx(ctx, "Error reading data: %v", err)
		return []store.Row{}
	}

	ok = true
	logger.InfoCtx(ctx, "Successfully retrieved %d records", len(rows))
	return rows
}

// queryArg extracts the "query" argument and reports whether it was
// given. A value of the wrong type is an error.
func queryArg(args map[string]any) (query string, present bool, err error) {
	raw, exists := args["query"]
	if !exists || raw == nil {
		return "", false, nil
	}
	query, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("parameter query must be a string, got %T", raw)
	}
	return query, true, nil
}
